package postgres

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/evstream/cdc-service/internal/domain"
	"github.com/evstream/cdc-service/internal/ports"
)

type eventRepository struct {
	db *gorm.DB
}

func (r *eventRepository) Insert(ctx context.Context, env domain.EventEnvelope) error {
	rec := newEventModel(env)
	return r.db.WithContext(ctx).Create(&rec).Error
}

// newEventModel maps an envelope to its row. CreatedAt stays zero so the
// column default assigns the insertion time from the database clock.
func newEventModel(env domain.EventEnvelope) eventModel {
	return eventModel{
		EventID:     env.EventID,
		EventType:   env.EventType,
		TimestampMS: env.TimestampMS,
		UserID:      env.UserID,
		SessionID:   env.SessionID,
		Payload:     string(env.Payload),
	}
}

func (r *eventRepository) ListRecent(ctx context.Context, limit int) ([]ports.StoredEvent, error) {
	var rows []eventModel
	if err := r.db.WithContext(ctx).Order("timestamp_ms desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toStoredEvents(rows), nil
}

func (r *eventRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]ports.StoredEvent, error) {
	var rows []eventModel
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("timestamp_ms desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toStoredEvents(rows), nil
}

func (r *eventRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func toStoredEvents(rows []eventModel) []ports.StoredEvent {
	out := make([]ports.StoredEvent, 0, len(rows))
	for _, row := range rows {
		out = append(out, ports.StoredEvent{
			Envelope: domain.EventEnvelope{
				EventID:     row.EventID,
				EventType:   row.EventType,
				TimestampMS: row.TimestampMS,
				UserID:      row.UserID,
				SessionID:   row.SessionID,
				Payload:     json.RawMessage(row.Payload),
			},
			CreatedAt: row.CreatedAt,
		})
	}
	return out
}

type deadLetterRepository struct {
	db *gorm.DB
}

func (r *deadLetterRepository) Record(ctx context.Context, entry ports.DeadLetterEntry) error {
	rec := deadLetterModel{
		Reason:     entry.Reason,
		EventID:    entry.EventID,
		RawPayload: entry.RawPayload,
		FailedAt:   entry.FailedAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}
