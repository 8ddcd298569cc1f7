package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

// eventWriteTimeout bounds a single websocket write; a subscriber stuck
// longer than this is dropped.
const eventWriteTimeout = 5 * time.Second

// handleEvents upgrades to a websocket and streams sync events until
// the client disconnects. The client is not expected to send anything.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("api: websocket accept failed", slog.String("error", err.Error()))
		return
	}
	defer conn.CloseNow()

	// CloseRead discards inbound messages and cancels the context when
	// the peer goes away.
	ctx := conn.CloseRead(r.Context())

	ch, cancel := s.hub.Subscribe()
	defer cancel()

	s.logger.Debug("api: event subscriber connected")

	for {
		select {
		case <-ctx.Done():
			return

		case payload, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "shutting down")
				return
			}

			writeCtx, writeCancel := context.WithTimeout(ctx, eventWriteTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, payload)
			writeCancel()

			if err != nil {
				return
			}
		}
	}
}
