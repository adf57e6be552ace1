package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/evstream/cdc-service/internal/ports"
)

// KafkaConsumer reads the event topic back through a consumer group. Poll
// gathers up to max records within the bounded wait and treats an exhausted
// deadline as an empty batch, not an error.
type KafkaConsumer struct {
	reader  *kafka.Reader
	maxWait time.Duration
}

func NewKafkaConsumer(brokers []string, groupID, topic string, maxWait time.Duration) (*KafkaConsumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka consumer requires at least one broker")
	}
	if groupID == "" {
		return nil, fmt.Errorf("kafka consumer requires group id")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka consumer requires a topic")
	}
	if maxWait <= 0 {
		maxWait = time.Second
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  maxWait / 2,
	})
	return &KafkaConsumer{reader: reader, maxWait: maxWait}, nil
}

func (c *KafkaConsumer) Poll(ctx context.Context, max int) ([]ports.Record, error) {
	if max <= 0 {
		max = 1
	}
	deadline := time.Now().Add(c.maxWait)
	out := make([]ports.Record, 0, max)
	for len(out) < max {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return out, nil
		}
		readCtx, cancel := context.WithTimeout(ctx, remaining)
		msg, err := c.reader.ReadMessage(readCtx)
		cancel()
		if err != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				return out, nil
			case errors.Is(err, context.Canceled):
				return out, ctx.Err()
			default:
				return out, err
			}
		}
		out = append(out, ports.Record{
			Topic:     msg.Topic,
			Partition: msg.Partition,
			Offset:    msg.Offset,
			Key:       msg.Key,
			Value:     msg.Value,
		})
	}
	return out, nil
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
