// Package tasks runs long operations (load, export, batch edits) off the
// interactive thread with ordered progress and cooperative cancellation.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wudi/redactkit/observability"
)

// ErrCanceled is the error of every canceled outcome.
var ErrCanceled = errors.New("task canceled")

// Progress is one notification. Percent never decreases within a task.
type Progress struct {
	Percent int
	Stage   string
}

// Outcome is the final state of a task. A canceled task carries the zero
// Value; partial results are discarded.
type Outcome[T any] struct {
	Value    T
	Err      error
	Canceled bool
}

// Reporter publishes progress from inside a task.
type Reporter func(percent int, stage string)

// Func is the body of a task. It should check ctx between steps.
type Func[T any] func(ctx context.Context, report Reporter) (T, error)

type config struct {
	name   string
	logger observability.Logger
	buffer int
}

type Option func(*config)

func WithName(name string) Option { return func(c *config) { c.name = name } }

func WithLogger(logger observability.Logger) Option { return func(c *config) { c.logger = logger } }

// WithBuffer sets the progress channel capacity. When the channel is full,
// notifications are dropped rather than blocking the task.
func WithBuffer(n int) Option { return func(c *config) { c.buffer = n } }

// Handle tracks a running task.
type Handle[T any] struct {
	progress chan Progress
	done     chan Outcome[T]
	finished chan struct{}
	cancel   context.CancelFunc

	mu      sync.Mutex
	last    int
	closed  bool
	outcome Outcome[T]
}

// Run starts fn on its own goroutine.
func Run[T any](ctx context.Context, fn Func[T], opts ...Option) *Handle[T] {
	cfg := config{name: "task", buffer: 64}
	for _, opt := range opts {
		opt(&cfg)
	}
	log := observability.OrNop(cfg.logger).With(observability.String("task", cfg.name))

	ctx, cancel := context.WithCancel(ctx)
	h := &Handle[T]{
		progress: make(chan Progress, max(cfg.buffer, 1)),
		done:     make(chan Outcome[T], 1),
		finished: make(chan struct{}),
		cancel:   cancel,
		last:     -1,
	}
	go func() {
		defer cancel()
		out := h.run(ctx, fn)
		switch {
		case out.Canceled:
			log.Info("task canceled")
		case out.Err != nil:
			log.Warn("task failed", observability.Error("error", out.Err))
		default:
			log.Debug("task finished")
		}
		h.mu.Lock()
		h.outcome = out
		h.closed = true
		close(h.progress)
		h.mu.Unlock()
		close(h.finished)
		h.done <- out
	}()
	return h
}

func (h *Handle[T]) run(ctx context.Context, fn Func[T]) (out Outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome[T]{Err: fmt.Errorf("task panicked: %v", r)}
		}
	}()
	v, err := fn(ctx, h.report)
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return Outcome[T]{Err: ErrCanceled, Canceled: true}
	}
	if err != nil {
		return Outcome[T]{Err: err}
	}
	return Outcome[T]{Value: v}
}

func (h *Handle[T]) report(percent int, stage string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	percent = min(max(percent, h.last, 0), 100)
	h.last = percent
	select {
	case h.progress <- Progress{Percent: percent, Stage: stage}:
	default:
	}
}

// Progress is closed when the task finishes.
func (h *Handle[T]) Progress() <-chan Progress { return h.progress }

// Done delivers the outcome once.
func (h *Handle[T]) Done() <-chan Outcome[T] { return h.done }

// Cancel asks the task to stop at its next check.
func (h *Handle[T]) Cancel() { h.cancel() }

// Wait blocks until the task finishes. It may be called any number of times.
func (h *Handle[T]) Wait() Outcome[T] {
	<-h.finished
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outcome
}
