package ports

import (
	"context"
	"time"

	"github.com/evstream/cdc-service/internal/domain"
)

// StoredEvent mirrors the envelope fields plus the server-assigned insertion
// time.
type StoredEvent struct {
	Envelope  domain.EventEnvelope
	CreatedAt time.Time
}

type EventRepository interface {
	// Insert persists one envelope. One attempt, no retry; the caller
	// decides whether a failure matters.
	Insert(ctx context.Context, env domain.EventEnvelope) error
	ListRecent(ctx context.Context, limit int) ([]StoredEvent, error)
	ListBySession(ctx context.Context, sessionID string, limit int) ([]StoredEvent, error)
	Ping(ctx context.Context) error
}

// DeadLetterEntry records a payload that failed processing instead of
// silently dropping it.
type DeadLetterEntry struct {
	Reason     string
	EventID    string
	RawPayload []byte
	FailedAt   time.Time
}

// DeadLetterSink routes failed records somewhere inspectable. Sinks must be
// best-effort: a sink failure never interrupts the pipeline.
type DeadLetterSink interface {
	Record(ctx context.Context, entry DeadLetterEntry) error
}
