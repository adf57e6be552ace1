package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/evstream/cdc-service/internal/domain"
	"github.com/evstream/cdc-service/internal/ports"
)

// FanoutEnqueuer hands a decoded envelope to the broadcast side of the
// pipeline. Implementations must not block.
type FanoutEnqueuer interface {
	Enqueue(env domain.EventEnvelope) bool
}

// ConsumerWorker is the long-running consume loop: poll the log, decode each
// record, persist best-effort, then forward for fan-out. A bad record or a
// failed insert is isolated to that record; the loop itself only exits on
// cancellation or a fatal subscription error.
type ConsumerWorker struct {
	logger     *slog.Logger
	consumer   ports.EventConsumer
	repo       ports.EventRepository
	cache      ports.RecentEventsCache
	deadLetter ports.DeadLetterSink
	fanout     FanoutEnqueuer
	batchSize  int
	errBackoff time.Duration
	nowFn      func() time.Time
}

func NewConsumerWorker(logger *slog.Logger, consumer ports.EventConsumer, repo ports.EventRepository, cache ports.RecentEventsCache, deadLetter ports.DeadLetterSink, fanout FanoutEnqueuer, batchSize int) *ConsumerWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	if deadLetter == nil {
		deadLetter = NoopDeadLetterSink{}
	}
	return &ConsumerWorker{
		logger:     logger,
		consumer:   consumer,
		repo:       repo,
		cache:      cache,
		deadLetter: deadLetter,
		fanout:     fanout,
		batchSize:  batchSize,
		errBackoff: time.Second,
		nowFn:      func() time.Time { return time.Now().UTC() },
	}
}

func (w *ConsumerWorker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		records, err := w.consumer.Poll(ctx, w.batchSize)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			w.logger.ErrorContext(ctx, "log poll failed",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "poll",
				"outcome", "failure",
				"error", err,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.errBackoff):
			}
			continue
		}
		for _, rec := range records {
			w.handleRecord(ctx, rec)
		}
	}
}

func (w *ConsumerWorker) handleRecord(ctx context.Context, rec ports.Record) {
	env, err := domain.DecodeEnvelope(rec.Value)
	if err != nil {
		w.logger.WarnContext(ctx, "skipping undecodable record",
			"module", "events.consumer_worker",
			"layer", "adapter",
			"operation", "decode",
			"outcome", "skipped",
			"topic", rec.Topic,
			"partition", rec.Partition,
			"offset", rec.Offset,
			"error", err,
		)
		_ = w.deadLetter.Record(ctx, ports.DeadLetterEntry{
			Reason:     "decode: " + err.Error(),
			RawPayload: rec.Value,
			FailedAt:   w.nowFn(),
		})
		return
	}

	// Availability over durability: a failed insert is logged and
	// dead-lettered but never stops the envelope from reaching live
	// subscribers.
	if err := w.repo.Insert(ctx, env); err != nil {
		w.logger.ErrorContext(ctx, "event persist failed",
			"module", "events.consumer_worker",
			"layer", "adapter",
			"operation", "insert",
			"outcome", "failure",
			"event_id", env.EventID,
			"error", err,
		)
		_ = w.deadLetter.Record(ctx, ports.DeadLetterEntry{
			Reason:     "insert: " + err.Error(),
			EventID:    env.EventID,
			RawPayload: rec.Value,
			FailedAt:   w.nowFn(),
		})
	} else if w.cache != nil {
		_ = w.cache.Invalidate(ctx)
	}

	if ok := w.fanout.Enqueue(env); !ok {
		w.logger.WarnContext(ctx, "fan-out queue overflow, oldest envelope dropped",
			"module", "events.consumer_worker",
			"layer", "adapter",
			"operation", "enqueue",
			"outcome", "overflow",
			"event_id", env.EventID,
		)
	}
}
