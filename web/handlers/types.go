package handlers

import "github.com/scrypster/seedgraph/pkg/types"

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// QueryResponse is the response format for POST /api/v1/query and
// POST /api/v1/query/all.
type QueryResponse struct {
	QueryID  string          `json:"query_id"`
	Count    int             `json:"count"`
	Elements []types.Element `json:"elements"`
}

// ElementsRequest is the request format for POST /api/v1/elements.
type ElementsRequest struct {
	Elements []types.ElementJSON `json:"elements"`
}

// ElementsResponse is the response format for POST /api/v1/elements.
type ElementsResponse struct {
	Added int `json:"added"`
}

// StreamMessage is one websocket frame of a streamed query. Exactly one of
// Element, Done or Error is set.
type StreamMessage struct {
	QueryID string             `json:"query_id,omitempty"`
	Element *types.ElementJSON `json:"element,omitempty"`
	Done    bool               `json:"done,omitempty"`
	Count   int                `json:"count,omitempty"`
	Error   string             `json:"error,omitempty"`
	Code    string             `json:"code,omitempty"`
}
