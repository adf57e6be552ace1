package events

import (
	"context"
	"log/slog"

	"github.com/evstream/cdc-service/internal/ports"
)

// LoggingPublisher stands in for Kafka when no brokers are configured, so
// local development still shows the produce path working.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, partitionKey string, payload []byte) error {
	p.logger.InfoContext(ctx, "event published",
		"module", "events.publisher",
		"layer", "adapter",
		"operation", "publish",
		"outcome", "success",
		"partition_key", partitionKey,
		"payload_bytes", len(payload),
	)
	return nil
}

func (p *LoggingPublisher) Ping(_ context.Context) error { return nil }

func (p *LoggingPublisher) Close() error { return nil }

// NoopConsumer blocks until shutdown so the consume loop idles instead of
// spinning when no broker is configured.
type NoopConsumer struct{}

func NewNoopConsumer() *NoopConsumer {
	return &NoopConsumer{}
}

func (n *NoopConsumer) Poll(ctx context.Context, _ int) ([]ports.Record, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (n *NoopConsumer) Close() error { return nil }

// NoopDeadLetterSink discards failed records. Wired when no durable sink is
// configured, keeping the dead-letter path an explicit but optional choice.
type NoopDeadLetterSink struct{}

func (NoopDeadLetterSink) Record(_ context.Context, _ ports.DeadLetterEntry) error { return nil }
