package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/ripple/internal/store"
)

// Loop is the single writer for a store graph.
//
// Thread-safety model:
//   - Do, Exec, Stop, Pending: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//   - tasks: run one at a time on the Run goroutine, in submission order
type Loop struct {
	queue      *taskQueue
	logger     *slog.Logger
	maxPending int
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger for loop lifecycle and task failures.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(lp *Loop) {
		lp.logger = l
	}
}

// WithMaxPending bounds the number of queued tasks. Do fails with
// QUEUE_FULL once the bound is reached. Zero (the default) means unbounded.
func WithMaxPending(n int) Option {
	return func(lp *Loop) {
		lp.maxPending = n
	}
}

// New creates a stopped loop. Call Run to start processing.
func New(opts ...Option) *Loop {
	l := &Loop{logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	l.queue = newTaskQueue(l.maxPending)
	return l
}

// Do submits fn to run on the loop. The returned channel receives fn's
// error (nil on success) once it has run, or the refusal error right away
// if the loop is stopped or full.
func (l *Loop) Do(fn func() error) <-chan error {
	done := make(chan error, 1)
	if err := l.queue.Enqueue(task{fn: fn, done: done}); err != nil {
		done <- err
	}
	return done
}

// Exec submits fn and waits for it to run. If ctx ends first Exec returns
// ctx.Err(); fn may still run later.
func (l *Loop) Exec(ctx context.Context, fn func() error) error {
	select {
	case err := <-l.Do(fn):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	return l.queue.Len()
}

// Run processes tasks until ctx is cancelled or Stop is called.
//
// A failing task is logged and processing continues; its error is also
// delivered to the submitter. After Stop, tasks already queued are drained
// before Run returns nil. On cancellation, queued tasks are refused with
// LOOP_STOPPED and Run returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debug("loop starting")

	for {
		if t, ok := l.queue.TryDequeue(); ok {
			l.run(t)
			continue
		}

		select {
		case <-ctx.Done():
			l.logger.Debug("loop stopping: context cancelled")
			l.queue.Close()
			l.refuse()
			return ctx.Err()

		case <-l.queue.Wait():
			// The signal channel is closed by Stop, so a closed and empty
			// queue lands here every time.
			if l.queue.Closed() && l.queue.Len() == 0 {
				l.logger.Debug("loop stopping: stopped")
				return nil
			}
		}
	}
}

// Stop refuses further tasks. Run drains the queue and returns.
func (l *Loop) Stop() {
	l.queue.Close()
}

func (l *Loop) run(t task) {
	err := t.fn()
	if err != nil {
		l.logger.Warn("task failed", "error", err)
	}
	t.done <- err
}

func (l *Loop) refuse() {
	for {
		t, ok := l.queue.TryDequeue()
		if !ok {
			return
		}
		t.done <- newStoppedError()
	}
}

// SetAsync updates s through l with a value computed off the loop.
//
// The timestamp is taken from s's clock when SetAsync is called. produce
// runs on the calling goroutine with the value current at that point, and
// the result is applied on the loop with the original timestamp. If a newer
// update landed in the meantime the result is rejected with
// OUT_OF_ORDER_TIMESTAMP.
func SetAsync[V any](ctx context.Context, l *Loop, s *store.Store[V], produce store.Producer[V]) error {
	ts := s.Clock().Now()

	var current V
	if err := l.Exec(ctx, func() error {
		current = s.Get()
		return nil
	}); err != nil {
		return err
	}

	v, err := produce(ctx, current)
	if err != nil {
		return fmt.Errorf("produce value: %w", err)
	}
	return l.Exec(ctx, func() error { return s.SetAt(v, ts) })
}

// PatchAsync is SetAsync for collections: produce computes a patch from a
// copy of the items current when PatchAsync was called.
func PatchAsync[K comparable, T any](ctx context.Context, l *Loop, c *store.Collection[K, T], produce store.PatchProducer[T]) error {
	ts := c.Clock().Now()

	var current []T
	if err := l.Exec(ctx, func() error {
		current = append([]T(nil), c.Get()...)
		return nil
	}); err != nil {
		return err
	}

	p, err := produce(ctx, current)
	if err != nil {
		return fmt.Errorf("produce patch: %w", err)
	}
	return l.Exec(ctx, func() error { return c.SetAt(p, ts) })
}
