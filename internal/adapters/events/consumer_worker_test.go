package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/evstream/cdc-service/internal/domain"
	"github.com/evstream/cdc-service/internal/ports"
)

type scriptedConsumer struct {
	mu      sync.Mutex
	batches [][]ports.Record
}

func (c *scriptedConsumer) Poll(ctx context.Context, _ int) ([]ports.Record, error) {
	c.mu.Lock()
	if len(c.batches) > 0 {
		batch := c.batches[0]
		c.batches = c.batches[1:]
		c.mu.Unlock()
		return batch, nil
	}
	c.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (c *scriptedConsumer) Close() error { return nil }

type fakeEventRepo struct {
	mu        sync.Mutex
	insertErr error
	inserted  []domain.EventEnvelope
}

func (r *fakeEventRepo) Insert(_ context.Context, env domain.EventEnvelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, env)
	return nil
}

func (r *fakeEventRepo) ListRecent(_ context.Context, limit int) ([]ports.StoredEvent, error) {
	return nil, nil
}

func (r *fakeEventRepo) ListBySession(_ context.Context, _ string, _ int) ([]ports.StoredEvent, error) {
	return nil, nil
}

func (r *fakeEventRepo) Ping(_ context.Context) error { return nil }

func (r *fakeEventRepo) insertedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.inserted))
	for _, env := range r.inserted {
		out = append(out, env.EventID)
	}
	return out
}

type collectingSink struct {
	mu      sync.Mutex
	entries []ports.DeadLetterEntry
}

func (s *collectingSink) Record(_ context.Context, entry ports.DeadLetterEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *collectingSink) all() []ports.DeadLetterEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.DeadLetterEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

type collectingFanout struct {
	mu   sync.Mutex
	envs []domain.EventEnvelope
}

func (f *collectingFanout) Enqueue(env domain.EventEnvelope) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.envs = append(f.envs, env)
	return true
}

func (f *collectingFanout) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.envs))
	for _, env := range f.envs {
		out = append(out, env.EventID)
	}
	return out
}

type countingCache struct {
	mu          sync.Mutex
	invalidated int
}

func (c *countingCache) Get(_ context.Context, _ string) ([]byte, bool, error) { return nil, false, nil }
func (c *countingCache) Set(_ context.Context, _ string, _ []byte) error       { return nil }
func (c *countingCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func encodedRecord(t *testing.T, id string) ports.Record {
	t.Helper()
	env := domain.EventEnvelope{
		EventID:     id,
		EventType:   "custom.test",
		TimestampMS: time.Now().UnixMilli(),
		SessionID:   "session-1",
		Payload:     json.RawMessage(`{}`),
	}
	raw, err := env.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return ports.Record{Topic: "llm-events", Value: raw}
}

func runWorker(t *testing.T, w *ConsumerWorker, until func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !until() {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected canceled exit, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("worker did not stop on cancel")
	}
	if !until() {
		t.Fatalf("worker never reached expected state")
	}
}

func TestConsumerPersistsAndForwards(t *testing.T) {
	t.Parallel()

	consumer := &scriptedConsumer{batches: [][]ports.Record{{encodedRecord(t, "e1"), encodedRecord(t, "e2")}}}
	repo := &fakeEventRepo{}
	sink := &collectingSink{}
	fanout := &collectingFanout{}
	cache := &countingCache{}
	w := NewConsumerWorker(testLogger(), consumer, repo, cache, sink, fanout, 10)

	runWorker(t, w, func() bool { return len(fanout.ids()) == 2 })

	if got := repo.insertedIDs(); len(got) != 2 || got[0] != "e1" || got[1] != "e2" {
		t.Fatalf("expected e1,e2 persisted in order, got %v", got)
	}
	if got := fanout.ids(); got[0] != "e1" || got[1] != "e2" {
		t.Fatalf("expected e1,e2 forwarded in order, got %v", got)
	}
	if len(sink.all()) != 0 {
		t.Fatalf("expected no dead letters, got %d", len(sink.all()))
	}
	cache.mu.Lock()
	invalidated := cache.invalidated
	cache.mu.Unlock()
	if invalidated != 2 {
		t.Fatalf("expected cache invalidated per insert, got %d", invalidated)
	}
}

func TestConsumerSkipsUndecodableRecord(t *testing.T) {
	t.Parallel()

	consumer := &scriptedConsumer{batches: [][]ports.Record{{
		{Topic: "llm-events", Value: []byte("garbage")},
		encodedRecord(t, "e2"),
	}}}
	repo := &fakeEventRepo{}
	sink := &collectingSink{}
	fanout := &collectingFanout{}
	w := NewConsumerWorker(testLogger(), consumer, repo, nil, sink, fanout, 10)

	runWorker(t, w, func() bool { return len(fanout.ids()) == 1 })

	if got := fanout.ids(); got[0] != "e2" {
		t.Fatalf("expected only e2 forwarded, got %v", got)
	}
	entries := sink.all()
	if len(entries) != 1 {
		t.Fatalf("expected 1 dead letter, got %d", len(entries))
	}
	if string(entries[0].RawPayload) != "garbage" {
		t.Fatalf("dead letter should carry the raw payload")
	}
}

func TestConsumerForwardsDespiteStoreFailure(t *testing.T) {
	t.Parallel()

	consumer := &scriptedConsumer{batches: [][]ports.Record{{encodedRecord(t, "e1")}}}
	repo := &fakeEventRepo{insertErr: errors.New("connection refused")}
	sink := &collectingSink{}
	fanout := &collectingFanout{}
	w := NewConsumerWorker(testLogger(), consumer, repo, nil, sink, fanout, 10)

	runWorker(t, w, func() bool { return len(fanout.ids()) == 1 })

	if got := fanout.ids(); got[0] != "e1" {
		t.Fatalf("store failure must not stop fan-out, got %v", got)
	}
	entries := sink.all()
	if len(entries) != 1 || entries[0].EventID != "e1" {
		t.Fatalf("expected dead letter for e1, got %+v", entries)
	}
	if len(repo.insertedIDs()) != 0 {
		t.Fatalf("insert should have failed")
	}
}

func TestConsumerSurvivesPollErrors(t *testing.T) {
	t.Parallel()

	consumer := &flakyConsumer{
		errs:  1,
		after: [][]ports.Record{{encodedRecord(t, "e1")}},
	}
	repo := &fakeEventRepo{}
	fanout := &collectingFanout{}
	w := NewConsumerWorker(testLogger(), consumer, repo, nil, nil, fanout, 10)
	w.errBackoff = 5 * time.Millisecond

	runWorker(t, w, func() bool { return len(fanout.ids()) == 1 })
}

type flakyConsumer struct {
	mu    sync.Mutex
	errs  int
	after [][]ports.Record
}

func (c *flakyConsumer) Poll(ctx context.Context, _ int) ([]ports.Record, error) {
	c.mu.Lock()
	if c.errs > 0 {
		c.errs--
		c.mu.Unlock()
		return nil, errors.New("broker hiccup")
	}
	if len(c.after) > 0 {
		batch := c.after[0]
		c.after = c.after[1:]
		c.mu.Unlock()
		return batch, nil
	}
	c.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (c *flakyConsumer) Close() error { return nil }
