package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/evstream/cdc-service/internal/application"
)

type Handler struct {
	service *application.Service
}

func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

// NewRouter wires the read-side and ingest routes. The stream handler is
// injected because websocket upgrades live in their own adapter.
func NewRouter(handler *Handler, streamHandler http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(corsMiddleware)

	r.Get("/ping", handler.ping)
	r.Get("/health", handler.health)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeMessage(w, http.StatusOK, "ok") })

	r.Route("/api", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Post("/", handler.produceEvent)
			r.Get("/", handler.getRecentEvents)
			r.Post("/llm-inference", handler.produceInferenceEvent)
			r.Get("/stream", streamHandler)
		})
		r.Get("/sessions/{session_id}/events", handler.getSessionEvents)
	})
	return r
}
