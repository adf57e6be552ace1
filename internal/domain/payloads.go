package domain

import (
	"encoding/json"
	"fmt"
)

const (
	EventTypeInferenceCompleted = "llm.inference.completed"
	EventTypeInferenceStarted   = "llm.inference.started"
	EventTypeStateChanged       = "system.state_changed"
)

// InferenceCompletedPayload records one finished model invocation.
type InferenceCompletedPayload struct {
	Prompt         string  `json:"prompt"`
	Response       string  `json:"response"`
	ModelName      string  `json:"model_name"`
	PromptTokens   int     `json:"prompt_tokens"`
	ResponseTokens int     `json:"response_tokens"`
	LatencyMS      int64   `json:"latency_ms"`
	Success        bool    `json:"success"`
	ErrorMessage   string  `json:"error_message,omitempty"`
	Intent         string  `json:"intent"`
	Confidence     float64 `json:"confidence"`
}

func (p InferenceCompletedPayload) Validate() error {
	if p.ModelName == "" {
		return fmt.Errorf("%w: model_name is required", ErrInvalidInput)
	}
	if p.PromptTokens < 0 || p.ResponseTokens < 0 {
		return fmt.Errorf("%w: token counts must be non-negative", ErrInvalidInput)
	}
	if p.LatencyMS < 0 {
		return fmt.Errorf("%w: latency_ms must be non-negative", ErrInvalidInput)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be within [0,1]", ErrInvalidInput)
	}
	return nil
}

// InferenceStartedPayload marks the beginning of a model invocation.
type InferenceStartedPayload struct {
	ModelName    string `json:"model_name"`
	PromptTokens int    `json:"prompt_tokens"`
	Intent       string `json:"intent,omitempty"`
}

func (p InferenceStartedPayload) Validate() error {
	if p.ModelName == "" {
		return fmt.Errorf("%w: model_name is required", ErrInvalidInput)
	}
	if p.PromptTokens < 0 {
		return fmt.Errorf("%w: prompt_tokens must be non-negative", ErrInvalidInput)
	}
	return nil
}

// StateChangedPayload captures a CRUD-style mutation of a tracked entity.
type StateChangedPayload struct {
	EntityType   string         `json:"entity_type"`
	EntityID     string         `json:"entity_id"`
	ChangeType   string         `json:"change_type"`
	FieldChanges map[string]any `json:"field_changes,omitempty"`
}

var validChangeTypes = map[string]struct{}{
	"create": {}, "update": {}, "delete": {}, "archive": {}, "restore": {},
}

func (p StateChangedPayload) Validate() error {
	if p.EntityType == "" || p.EntityID == "" {
		return fmt.Errorf("%w: entity_type and entity_id are required", ErrInvalidInput)
	}
	if _, ok := validChangeTypes[p.ChangeType]; !ok {
		return fmt.Errorf("%w: unknown change_type %q", ErrInvalidInput, p.ChangeType)
	}
	return nil
}

// ValidatePayload checks the payload bytes against the schema selected by
// eventType. Unknown event types pass through untouched; the envelope layer
// is agnostic to payload internals beyond type-tagging.
func ValidatePayload(eventType string, raw json.RawMessage) error {
	switch eventType {
	case EventTypeInferenceCompleted:
		var p InferenceCompletedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return p.Validate()
	case EventTypeInferenceStarted:
		var p InferenceStartedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return p.Validate()
	case EventTypeStateChanged:
		var p StateChangedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return p.Validate()
	default:
		return nil
	}
}

// DecodePayload performs schema-on-read decoding for the Query API. Known
// event types come back as their typed payload struct; everything else
// decodes to a generic map so callers always get structured data.
func DecodePayload(eventType string, raw json.RawMessage) (any, error) {
	switch eventType {
	case EventTypeInferenceCompleted:
		var p InferenceCompletedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}
		return p, nil
	case EventTypeInferenceStarted:
		var p InferenceStartedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}
		return p, nil
	case EventTypeStateChanged:
		var p StateChangedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}
		return p, nil
	default:
		var generic map[string]any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}
		return generic, nil
	}
}
