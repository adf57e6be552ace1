package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// Runner is a long-lived loop that exits when its context is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// Pipeline owns the consumer and broadcaster loops plus the lifecycle of the
// shared log and store clients. Start schedules both loops and returns; Stop
// is idempotent and leaves nothing running.
type Pipeline struct {
	logger      *slog.Logger
	consumer    Runner
	broadcaster Runner
	registry    *Registry
	closers     []io.Closer

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

func NewPipeline(logger *slog.Logger, consumer, broadcaster Runner, registry *Registry, closers ...io.Closer) *Pipeline {
	return &Pipeline{
		logger:      logger,
		consumer:    consumer,
		broadcaster: broadcaster,
		registry:    registry,
		closers:     closers,
	}
}

func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil || p.stopped {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := p.consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.ErrorContext(runCtx, "consumer loop terminated",
				"module", "stream.pipeline", "operation", "consume", "outcome", "failure", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := p.broadcaster.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.ErrorContext(runCtx, "broadcaster loop terminated",
				"module", "stream.pipeline", "operation", "broadcast", "outcome", "failure", "error", err)
		}
	}()
	go func(done chan struct{}) {
		wg.Wait()
		close(done)
	}(p.done)
}

// Stop cancels both loops, waits for them to unwind, clears the session
// registry and closes the shared clients. Safe to call more than once.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	p.registry.Clear()
	for _, c := range p.closers {
		_ = c.Close()
	}
}
