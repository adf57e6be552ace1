package stream

import (
	"context"
	"log/slog"
)

// Broadcaster drains the fan-out queue and pushes each envelope to every
// session registered at the moment it is dequeued. Delivery is best-effort
// and present-tense only; late joiners backfill through the Query API.
type Broadcaster struct {
	logger   *slog.Logger
	queue    *FanoutQueue
	registry *Registry
}

func NewBroadcaster(logger *slog.Logger, queue *FanoutQueue, registry *Registry) *Broadcaster {
	return &Broadcaster{logger: logger, queue: queue, registry: registry}
}

func (b *Broadcaster) Run(ctx context.Context) error {
	for {
		env, err := b.queue.Dequeue(ctx)
		if err != nil {
			return err
		}
		payload, err := env.Encode()
		if err != nil {
			b.logger.WarnContext(ctx, "skipping undeliverable envelope",
				"module", "stream.broadcaster",
				"operation", "encode",
				"outcome", "failure",
				"event_id", env.EventID,
				"error", err,
			)
			continue
		}
		b.deliver(ctx, env.EventID, payload)
	}
}

// deliver attempts every session in the snapshot first, then evicts the
// failures after the full pass, so one broken or slow session cannot block
// delivery to the others.
func (b *Broadcaster) deliver(ctx context.Context, eventID string, payload []byte) {
	sessions := b.registry.Snapshot()
	var failed []Session
	for _, s := range sessions {
		if err := s.Send(payload); err != nil {
			failed = append(failed, s)
		}
	}
	for _, s := range failed {
		b.registry.Remove(s.ID())
		_ = s.Close()
		b.logger.InfoContext(ctx, "evicted dead push session",
			"module", "stream.broadcaster",
			"operation", "deliver",
			"outcome", "evicted",
			"session_id", s.ID(),
			"event_id", eventID,
		)
	}
	if len(sessions) > 0 {
		b.logger.DebugContext(ctx, "envelope broadcast",
			"module", "stream.broadcaster",
			"operation", "deliver",
			"outcome", "success",
			"event_id", eventID,
			"sessions", len(sessions),
			"failures", len(failed),
		)
	}
}
