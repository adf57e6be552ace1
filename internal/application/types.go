package application

import "encoding/json"

// ProduceInferenceEventRequest is the ingestion body for one completed model
// invocation. Field names follow the wire schema of the event payload.
type ProduceInferenceEventRequest struct {
	Prompt         string  `json:"prompt"`
	Response       string  `json:"response"`
	Model          string  `json:"model"`
	PromptTokens   int     `json:"prompt_tokens"`
	ResponseTokens int     `json:"response_tokens"`
	LatencyMS      int64   `json:"latency_ms"`
	Success        bool    `json:"success"`
	ErrorMessage   string  `json:"error_message,omitempty"`
	Intent         string  `json:"intent"`
	Confidence     float64 `json:"confidence"`
	UserID         string  `json:"user_id"`
	SessionID      string  `json:"session_id"`
}

// ProduceEventRequest is the generic typed-produce body.
type ProduceEventRequest struct {
	EventType string          `json:"event_type"`
	UserID    string          `json:"user_id"`
	SessionID string          `json:"session_id"`
	Payload   json.RawMessage `json:"payload"`
}

// ProduceEventResponse acknowledges acceptance, not durability.
type ProduceEventResponse struct {
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}

// EventView is one queryable event: envelope fields plus the schema-on-read
// decoded payload and the server-assigned insertion time.
type EventView struct {
	EventID     string `json:"event_id"`
	EventType   string `json:"event_type"`
	TimestampMS int64  `json:"timestamp_ms"`
	UserID      string `json:"user_id"`
	SessionID   string `json:"session_id"`
	Payload     any    `json:"payload"`
	CreatedAt   string `json:"created_at"`
}

type SessionEventsResponse struct {
	SessionID string      `json:"session_id"`
	Events    []EventView `json:"events"`
	Count     int         `json:"count"`
}

type HealthResponse struct {
	Status      string            `json:"status"`
	TimestampMS int64             `json:"timestamp_ms"`
	Components  map[string]string `json:"components"`
}
