package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evstream/cdc-service/internal/application"
)

func (h *Handler) produceInferenceEvent(w http.ResponseWriter, r *http.Request) {
	var req application.ProduceInferenceEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}
	resp, err := h.service.ProduceInferenceEvent(r.Context(), req)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) produceEvent(w http.ResponseWriter, r *http.Request) {
	var req application.ProduceEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}
	resp, err := h.service.ProduceEvent(r.Context(), req)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) getRecentEvents(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.service.GetRecentEvents(r.Context(), limit)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) getSessionEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	resp, err := h.service.GetSessionEvents(r.Context(), sessionID, limit)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	resp := h.service.Health(r.Context())
	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (h *Handler) ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "pong",
		"timestamp": time.Now().UTC().UnixMilli(),
	})
}
