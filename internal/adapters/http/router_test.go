package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/evstream/cdc-service/internal/application"
	"github.com/evstream/cdc-service/internal/domain"
	"github.com/evstream/cdc-service/internal/ports"
)

type stubPublisher struct{ err error }

func (p stubPublisher) Publish(_ context.Context, _ string, _ []byte) error { return p.err }
func (p stubPublisher) Ping(_ context.Context) error                        { return nil }
func (p stubPublisher) Close() error                                        { return nil }

type stubEventRepo struct {
	stored []ports.StoredEvent
}

func (r stubEventRepo) Insert(_ context.Context, _ domain.EventEnvelope) error { return nil }

func (r stubEventRepo) ListRecent(_ context.Context, limit int) ([]ports.StoredEvent, error) {
	if limit > len(r.stored) {
		limit = len(r.stored)
	}
	return r.stored[:limit], nil
}

func (r stubEventRepo) ListBySession(_ context.Context, sessionID string, _ int) ([]ports.StoredEvent, error) {
	var out []ports.StoredEvent
	for _, item := range r.stored {
		if item.Envelope.SessionID == sessionID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r stubEventRepo) Ping(_ context.Context) error { return nil }

func newTestRouter(t *testing.T, deps application.Dependencies) http.Handler {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	svc := application.NewService(deps)
	notStreaming := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotImplemented) }
	return NewRouter(NewHandler(svc), notStreaming)
}

func TestPingEndpoint(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, application.Dependencies{Publisher: stubPublisher{}})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body["message"] != "pong" {
		t.Fatalf("message = %v", body["message"])
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("request id header missing")
	}
}

func TestProduceEventAccepted(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, application.Dependencies{Publisher: stubPublisher{}})
	body := strings.NewReader(`{"event_type":"custom.signal","session_id":"s1","payload":{"k":"v"}}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/events", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var resp application.ProduceEventResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body: %v", err)
	}
	if resp.Status != "accepted" || resp.EventID == "" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestProduceEventRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, application.Dependencies{Publisher: stubPublisher{}})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader("{nope")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "VALIDATION_ERROR") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestProduceInferenceEventValidation(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, application.Dependencies{Publisher: stubPublisher{}})
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"model":"gpt-4o-mini","confidence":2.0}`)
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/events/llm-inference", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestGetRecentEvents(t *testing.T) {
	t.Parallel()

	env := domain.NewEnvelope("custom.signal", "u1", "s1", json.RawMessage(`{"k":"v"}`))
	repo := stubEventRepo{stored: []ports.StoredEvent{{Envelope: env, CreatedAt: time.Now().UTC()}}}
	router := newTestRouter(t, application.Dependencies{Publisher: stubPublisher{}, Events: repo})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events?limit=10", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var views []application.EventView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("body: %v", err)
	}
	if len(views) != 1 || views[0].EventID != env.EventID {
		t.Fatalf("views = %+v", views)
	}
}

func TestGetSessionEvents(t *testing.T) {
	t.Parallel()

	env := domain.NewEnvelope("custom.signal", "u1", "s1", json.RawMessage(`{}`))
	repo := stubEventRepo{stored: []ports.StoredEvent{{Envelope: env, CreatedAt: time.Now().UTC()}}}
	router := newTestRouter(t, application.Dependencies{Publisher: stubPublisher{}, Events: repo})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/s1/events", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp application.SessionEventsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body: %v", err)
	}
	if resp.SessionID != "s1" || resp.Count != 1 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestHealthDegraded(t *testing.T) {
	t.Parallel()

	// No log pinger, no store, no upstream probe configured.
	router := newTestRouter(t, application.Dependencies{
		Config:    application.Config{ProbeTimeout: 50 * time.Millisecond},
		Publisher: stubPublisher{},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp application.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body: %v", err)
	}
	if resp.Status != "unhealthy" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	r := NewRouter(NewHandler(application.NewService(application.Dependencies{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Publisher: stubPublisher{},
	})), func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/stream", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("panic not recovered, status = %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, application.Dependencies{Publisher: stubPublisher{}})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/events", nil))

	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("cors header missing")
	}
}
