package ws

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/evstream/cdc-service/internal/stream"
)

// Handler upgrades subscription requests and registers the resulting push
// session. No replay is sent on connect; a new session only sees envelopes
// dequeued after it joined.
func Handler(logger *slog.Logger, registry *stream.Registry) http.HandlerFunc {
	upgrader := &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed",
				"module", "ws.handler",
				"layer", "adapter",
				"operation", "upgrade",
				"outcome", "failure",
				"error", err,
			)
			return
		}
		session := newSession(uuid.NewString(), conn)
		registry.Add(session)
		logger.Info("push session connected",
			"module", "ws.handler",
			"layer", "adapter",
			"operation", "connect",
			"outcome", "success",
			"session_id", session.ID(),
		)
		go session.writePump()
		go session.readPump(func() {
			registry.Remove(session.ID())
			logger.Info("push session disconnected",
				"module", "ws.handler",
				"layer", "adapter",
				"operation", "disconnect",
				"outcome", "success",
				"session_id", session.ID(),
			)
		})
	}
}
