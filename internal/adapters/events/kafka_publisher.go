package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes encoded envelopes to the event topic. The writer runs
// in async mode: Publish returns once the message is enqueued, and delivery
// failures surface only through the completion callback. That is the
// fire-and-forget contract the ingestion API exposes.
type KafkaPublisher struct {
	writer  *kafka.Writer
	brokers []string
}

func NewKafkaPublisher(logger *slog.Logger, brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka publisher requires a topic")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireOne,
		Balancer:     &kafka.Hash{},
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err == nil {
				return
			}
			for _, msg := range messages {
				logger.Error("event publish failed",
					"module", "events.kafka_publisher",
					"layer", "adapter",
					"operation", "publish",
					"outcome", "failure",
					"partition_key", string(msg.Key),
					"error", err,
				)
			}
		},
	}
	return &KafkaPublisher{writer: writer, brokers: brokers}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, partitionKey string, payload []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(partitionKey),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

// Ping dials the first broker to confirm reachability for the health probe.
func (p *KafkaPublisher) Ping(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("dial kafka broker: %w", err)
	}
	return conn.Close()
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
