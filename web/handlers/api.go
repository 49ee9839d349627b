// Package handlers provides the HTTP handlers and middleware of the seedgraph
// query API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/scrypster/seedgraph/internal/engine"
	"github.com/scrypster/seedgraph/internal/storage"
	"github.com/scrypster/seedgraph/pkg/types"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 4 << 20

// QueryHandlers serves the query and element endpoints.
type QueryHandlers struct {
	evaluator      *engine.Evaluator
	writer         storage.GraphWriter
	logger         *slog.Logger
	allowedOrigins []string
	events         *WebSocketHub
}

// NewQueryHandlers creates the handlers. writer may be nil, in which case
// POST /api/v1/elements answers 501.
func NewQueryHandlers(ev *engine.Evaluator, writer storage.GraphWriter, logger *slog.Logger) *QueryHandlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &QueryHandlers{evaluator: ev, writer: writer, logger: logger}
}

// SetAllowedOrigins sets the origin patterns accepted by the websocket
// endpoint in addition to same-origin requests.
func (h *QueryHandlers) SetAllowedOrigins(patterns []string) {
	h.allowedOrigins = patterns
}

// SetEventHub makes AddElements publish an EventElementsAdded event to hub.
func (h *QueryHandlers) SetEventHub(hub *WebSocketHub) {
	h.events = hub
}

// Query handles POST /api/v1/query - evaluate a seeded query and return every
// matching element.
func (h *QueryHandlers) Query(w http.ResponseWriter, r *http.Request) {
	var req types.QueryRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	q, err := engine.ParseRequest(req)
	if err != nil {
		respondError(w, statusFor(err), "invalid query", err)
		return
	}

	stream, err := h.evaluator.Evaluate(r.Context(), q.Seeds, q.Mode, q.Filter)
	if err != nil {
		respondError(w, statusFor(err), "query failed", err)
		return
	}
	h.respondStream(w, stream)
}

// QueryAll handles POST /api/v1/query/all - return every element the
// inclusion knobs of the body admit. Seeds and seed matching are ignored.
func (h *QueryHandlers) QueryAll(w http.ResponseWriter, r *http.Request) {
	var req types.QueryRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	filter, err := engine.ParseFilter(req)
	if err != nil {
		respondError(w, statusFor(err), "invalid query", err)
		return
	}

	stream, err := h.evaluator.EvaluateAll(r.Context(), filter)
	if err != nil {
		respondError(w, statusFor(err), "query failed", err)
		return
	}
	h.respondStream(w, stream)
}

func (h *QueryHandlers) respondStream(w http.ResponseWriter, stream *engine.Stream) {
	elements, err := engine.Collect(stream)
	if err != nil {
		h.logger.Warn("query failed", "query_id", stream.ID(), "error", err)
		respondError(w, statusFor(err), "query failed", err)
		return
	}
	if elements == nil {
		elements = []types.Element{}
	}
	respondJSON(w, http.StatusOK, QueryResponse{
		QueryID:  stream.ID(),
		Count:    len(elements),
		Elements: elements,
	})
}

// AddElements handles POST /api/v1/elements - store elements, replacing the
// properties of any that already exist.
func (h *QueryHandlers) AddElements(w http.ResponseWriter, r *http.Request) {
	if h.writer == nil {
		respondError(w, http.StatusNotImplemented, "storage is read-only", nil)
		return
	}

	var req ElementsRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	elements, err := types.DecodeElements(req.Elements)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid elements", err)
		return
	}

	if err := h.writer.AddElements(r.Context(), elements); err != nil {
		respondError(w, statusFor(err), "failed to add elements", err)
		return
	}
	if h.events != nil {
		h.events.Broadcast(ElementsAdded(elements, ""))
	}
	respondJSON(w, http.StatusOK, ElementsResponse{Added: len(elements)})
}

// statusFor maps an error to the HTTP status reported for it.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidQuery),
		errors.Is(err, storage.ErrInvalidInput),
		errors.Is(err, types.ErrInvalidEnum),
		errors.Is(err, types.ErrInvalidElement):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, storage.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes a JSON request body into v, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return err
	}
	return nil
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already sent.
		slog.Default().Warn("failed to encode JSON response", "error", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}

	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}
	}

	respondJSON(w, statusCode, errResp)
}
