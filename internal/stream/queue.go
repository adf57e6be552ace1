package stream

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/evstream/cdc-service/internal/domain"
)

// FanoutQueue is the bounded buffer between the consumer loop and the
// broadcaster. When full, the oldest queued envelope is dropped so a stalled
// broadcaster can never grow memory without bound or block consumption.
type FanoutQueue struct {
	ch      chan domain.EventEnvelope
	mu      sync.Mutex
	dropped atomic.Uint64
}

func NewFanoutQueue(capacity int) *FanoutQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &FanoutQueue{ch: make(chan domain.EventEnvelope, capacity)}
}

// Enqueue never blocks. Returns false when an older envelope had to be
// dropped to make room.
func (q *FanoutQueue) Enqueue(env domain.EventEnvelope) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	evicted := false
	for {
		select {
		case q.ch <- env:
			return !evicted
		default:
		}
		select {
		case <-q.ch:
			q.dropped.Add(1)
			evicted = true
		default:
		}
	}
}

// Dequeue blocks until an envelope is available or ctx is cancelled.
func (q *FanoutQueue) Dequeue(ctx context.Context) (domain.EventEnvelope, error) {
	select {
	case env := <-q.ch:
		return env, nil
	case <-ctx.Done():
		return domain.EventEnvelope{}, ctx.Err()
	}
}

func (q *FanoutQueue) Len() int { return len(q.ch) }

// Dropped reports how many envelopes overflow has discarded since start.
func (q *FanoutQueue) Dropped() uint64 { return q.dropped.Load() }
