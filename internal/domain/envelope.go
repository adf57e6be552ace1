package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventEnvelope is the unit of record flowing through the pipeline. Once
// published, an envelope is immutable and its EventID is never reused.
type EventEnvelope struct {
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	TimestampMS int64           `json:"timestamp_ms"`
	UserID      string          `json:"user_id"`
	SessionID   string          `json:"session_id"`
	Payload     json.RawMessage `json:"payload"`
}

// NewEnvelope builds an envelope with a fresh id and the current wall clock.
func NewEnvelope(eventType, userID, sessionID string, payload json.RawMessage) EventEnvelope {
	return EventEnvelope{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		TimestampMS: time.Now().UTC().UnixMilli(),
		UserID:      userID,
		SessionID:   sessionID,
		Payload:     payload,
	}
}

func (e EventEnvelope) Encode() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return raw, nil
}

func DecodeEnvelope(raw []byte) (EventEnvelope, error) {
	var env EventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return EventEnvelope{}, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if err := env.Validate(); err != nil {
		return EventEnvelope{}, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return env, nil
}

func (e EventEnvelope) Validate() error {
	if strings.TrimSpace(e.EventID) == "" {
		return fmt.Errorf("%w: event_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(e.EventType) == "" {
		return fmt.Errorf("%w: event_type is required", ErrInvalidInput)
	}
	if e.TimestampMS <= 0 {
		return fmt.Errorf("%w: timestamp_ms must be positive", ErrInvalidInput)
	}
	return nil
}
