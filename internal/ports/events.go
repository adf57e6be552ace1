package ports

import "context"

// Record is one raw entry read back from the durable log.
type Record struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
}

// EventPublisher hands encoded envelopes to the durable log. Publish blocks
// only for the enqueue; delivery acknowledgment is the broker's business.
type EventPublisher interface {
	Publish(ctx context.Context, partitionKey string, payload []byte) error
	Close() error
}

// EventConsumer polls the durable log with a bounded wait. An empty batch is
// not an error.
type EventConsumer interface {
	Poll(ctx context.Context, max int) ([]Record, error)
	Close() error
}

// LogPinger is implemented by log clients that can cheaply probe broker
// reachability for the health endpoint.
type LogPinger interface {
	Ping(ctx context.Context) error
}
