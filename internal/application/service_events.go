package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/evstream/cdc-service/internal/domain"
	"github.com/evstream/cdc-service/internal/ports"
)

// ProduceInferenceEvent wraps the legacy single-purpose ingestion route: the
// request body is the payload of an llm.inference.completed envelope.
func (s *Service) ProduceInferenceEvent(ctx context.Context, req ProduceInferenceEventRequest) (ProduceEventResponse, error) {
	payload := domain.InferenceCompletedPayload{
		Prompt:         req.Prompt,
		Response:       req.Response,
		ModelName:      req.Model,
		PromptTokens:   req.PromptTokens,
		ResponseTokens: req.ResponseTokens,
		LatencyMS:      req.LatencyMS,
		Success:        req.Success,
		ErrorMessage:   req.ErrorMessage,
		Intent:         req.Intent,
		Confidence:     req.Confidence,
	}
	if err := payload.Validate(); err != nil {
		return ProduceEventResponse{}, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return ProduceEventResponse{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return s.produce(ctx, domain.EventTypeInferenceCompleted, req.UserID, req.SessionID, raw)
}

// ProduceEvent accepts any typed event. Known payload schemas are validated;
// unknown types pass through, keeping the envelope layer type-agnostic.
func (s *Service) ProduceEvent(ctx context.Context, req ProduceEventRequest) (ProduceEventResponse, error) {
	if req.EventType == "" {
		return ProduceEventResponse{}, fmt.Errorf("%w: event_type is required", domain.ErrInvalidInput)
	}
	if len(req.Payload) == 0 {
		req.Payload = json.RawMessage("{}")
	}
	if err := domain.ValidatePayload(req.EventType, req.Payload); err != nil {
		return ProduceEventResponse{}, err
	}
	return s.produce(ctx, req.EventType, req.UserID, req.SessionID, req.Payload)
}

// produce is fire-and-forget past validation: the envelope id is the
// partition key, a publish failure is logged and swallowed, and the caller
// only ever learns "accepted for processing".
func (s *Service) produce(ctx context.Context, eventType, userID, sessionID string, payload json.RawMessage) (ProduceEventResponse, error) {
	env := domain.NewEnvelope(eventType, userID, sessionID, payload)
	raw, err := env.Encode()
	if err != nil {
		return ProduceEventResponse{}, err
	}
	if err := s.publisher.Publish(ctx, env.EventID, raw); err != nil {
		s.logger.ErrorContext(ctx, "event publish failed",
			"module", "application.service",
			"layer", "application",
			"operation", "produce",
			"outcome", "failure",
			"event_id", env.EventID,
			"event_type", eventType,
			"error", err,
		)
	}
	return ProduceEventResponse{EventID: env.EventID, Status: "accepted"}, nil
}

// GetRecentEvents returns the newest events across all sessions,
// most-recent-first, through a short-TTL read cache.
func (s *Service) GetRecentEvents(ctx context.Context, limit int) ([]EventView, error) {
	limit = s.clampLimit(limit)
	cacheKey := strconv.Itoa(limit)
	if s.cache != nil {
		if raw, hit, err := s.cache.Get(ctx, cacheKey); err == nil && hit {
			var views []EventView
			if err := json.Unmarshal(raw, &views); err == nil {
				return views, nil
			}
		}
	}

	stored, err := s.events.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	views := s.toViews(ctx, stored)
	if s.cache != nil {
		if raw, err := json.Marshal(views); err == nil {
			_ = s.cache.Set(ctx, cacheKey, raw)
		}
	}
	return views, nil
}

// GetSessionEvents returns events correlated to one logical user session.
func (s *Service) GetSessionEvents(ctx context.Context, sessionID string, limit int) (SessionEventsResponse, error) {
	if sessionID == "" {
		return SessionEventsResponse{}, fmt.Errorf("%w: session_id is required", domain.ErrInvalidInput)
	}
	limit = s.clampLimit(limit)
	stored, err := s.events.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return SessionEventsResponse{}, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	views := s.toViews(ctx, stored)
	return SessionEventsResponse{SessionID: sessionID, Events: views, Count: len(views)}, nil
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultQueryLimit
	}
	if limit > s.cfg.MaxQueryLimit {
		return s.cfg.MaxQueryLimit
	}
	return limit
}

func (s *Service) toViews(ctx context.Context, stored []ports.StoredEvent) []EventView {
	views := make([]EventView, 0, len(stored))
	for _, item := range stored {
		decoded, err := domain.DecodePayload(item.Envelope.EventType, item.Envelope.Payload)
		if err != nil {
			s.logger.WarnContext(ctx, "stored payload decode failed",
				"module", "application.service",
				"layer", "application",
				"operation", "decode_payload",
				"outcome", "degraded",
				"event_id", item.Envelope.EventID,
				"error", err,
			)
			decoded = map[string]any{}
		}
		views = append(views, EventView{
			EventID:     item.Envelope.EventID,
			EventType:   item.Envelope.EventType,
			TimestampMS: item.Envelope.TimestampMS,
			UserID:      item.Envelope.UserID,
			SessionID:   item.Envelope.SessionID,
			Payload:     decoded,
			CreatedAt:   item.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return views
}
