package handlers

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"        //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	"nhooyr.io/websocket/wsjson" //nolint:staticcheck // TODO: migrate to github.com/coder/websocket

	"github.com/scrypster/seedgraph/internal/engine"
	"github.com/scrypster/seedgraph/pkg/types"
)

const streamWriteTimeout = 10 * time.Second

// Stream handles GET /api/v1/query/stream. The client sends one query as a
// JSON text message; the server answers with one message per matching
// element followed by {"done":true,"count":n}, or by {"error":...} if the
// query fails. Elements are pulled from storage only as fast as the client
// reads them, and closing the connection abandons the query.
func (h *QueryHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{ //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
		OriginPatterns: h.allowedOrigins,
	})
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusInternalError, "") //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	}()
	conn.SetReadLimit(maxBodyBytes)

	var req types.QueryRequest
	if err := wsjson.Read(r.Context(), conn, &req); err != nil {
		h.logger.Debug("failed to read streamed query", "error", err)
		return
	}

	// The connection is write-only from here on; a client close cancels ctx.
	ctx := conn.CloseRead(r.Context())

	q, err := engine.ParseRequest(req)
	if err != nil {
		h.finishStream(ctx, conn, "", err)
		return
	}
	stream, err := h.evaluator.Evaluate(ctx, q.Seeds, q.Mode, q.Filter)
	if err != nil {
		h.finishStream(ctx, conn, "", err)
		return
	}
	defer stream.Close()

	for stream.Next() {
		el := types.EncodeElement(stream.Element())
		if err := h.write(ctx, conn, StreamMessage{QueryID: stream.ID(), Element: &el}); err != nil {
			h.logger.Debug("query stream abandoned by client", "query_id", stream.ID(), "error", err)
			return
		}
	}
	if err := stream.Err(); err != nil {
		h.logger.Warn("streamed query failed", "query_id", stream.ID(), "error", err)
		h.finishStream(ctx, conn, stream.ID(), err)
		return
	}

	if err := h.write(ctx, conn, StreamMessage{QueryID: stream.ID(), Done: true, Count: stream.Count()}); err != nil {
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "") //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
}

func (h *QueryHandlers) finishStream(ctx context.Context, conn *websocket.Conn, queryID string, err error) { //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	status := statusFor(err)
	msg := StreamMessage{QueryID: queryID, Error: err.Error(), Code: http.StatusText(status)}
	if werr := h.write(ctx, conn, msg); werr != nil {
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "") //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
}

func (h *QueryHandlers) write(ctx context.Context, conn *websocket.Conn, msg StreamMessage) error { //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
