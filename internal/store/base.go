package store

import (
	"log/slog"

	"github.com/roach88/ripple/internal/clock"
	"github.com/roach88/ripple/internal/pubsub"
)

// EventChange is the event every store emits after an accepted update.
const EventChange = "change"

// base holds what every store kind shares: the timestamp, the change
// emitter, cleanup callbacks and the cycle guard. D is the delta type.
type base[D any] struct {
	cfg      config
	ts       int64
	events   *pubsub.Emitter[D]
	cleanup  []func()
	emitting bool
}

func newBase[D any](cfg config) base[D] {
	return base[D]{
		cfg:    cfg,
		events: pubsub.New[D](),
	}
}

// TS returns the timestamp of the last accepted update, 0 if none.
func (b *base[D]) TS() int64 {
	return b.ts
}

// Name returns the label given with WithName.
func (b *base[D]) Name() string {
	return b.cfg.name
}

// Clock returns the clock used for default timestamps.
func (b *base[D]) Clock() clock.Clock {
	return b.cfg.clock
}

// Logger returns the store's logger.
func (b *base[D]) Logger() *slog.Logger {
	return b.cfg.logger
}

// OnChange registers fn for every delta this store emits and returns a
// function that removes it.
func (b *base[D]) OnChange(fn func(D) error) (off func()) {
	id := b.events.On(EventChange, fn)
	return func() { b.events.Off(EventChange, id) }
}

// Watch registers fn for every change, passing only the delta's timestamp.
// It lets callers observe stores of any kind uniformly.
func (b *base[D]) Watch(fn func(ts int64) error) (off func()) {
	id := b.events.On(EventChange, func(D) error { return fn(b.ts) })
	return func() { b.events.Off(EventChange, id) }
}

// Listeners returns the number of registered change handlers.
func (b *base[D]) Listeners() int {
	return b.events.Count(EventChange)
}

// AddCleanup registers fn to run on Destroy. Combinators use it to
// unsubscribe from their upstream stores.
func (b *base[D]) AddCleanup(fn func()) {
	b.cleanup = append(b.cleanup, fn)
}

// Destroy runs the cleanup callbacks in reverse registration order and
// clears them. Destroying a store while a change is propagating through it
// is not supported.
func (b *base[D]) Destroy() {
	n := len(b.cleanup)
	for len(b.cleanup) > 0 {
		last := len(b.cleanup) - 1
		fn := b.cleanup[last]
		b.cleanup = b.cleanup[:last]
		fn()
	}
	b.cfg.logger.Debug("store destroyed", "store", b.cfg.name, "cleanups", n)
}

// admit checks an update stamped ts before any state is touched.
func (b *base[D]) admit(ts int64) error {
	if ts < b.ts {
		b.cfg.logger.Debug("rejected out-of-order update",
			"store", b.cfg.name,
			"ts", ts,
			"current", b.ts,
		)
		return newOutOfOrderError(b.cfg.name, b.ts, ts)
	}
	if b.cfg.cycleCheck && b.emitting {
		b.cfg.logger.Debug("rejected re-entrant update", "store", b.cfg.name, "ts", ts)
		return newCycleError(b.cfg.name)
	}
	return nil
}

// publish advances the timestamp and broadcasts d. Errors from downstream
// handlers are returned to the caller of Set; this store's own state has
// already been updated by then.
func (b *base[D]) publish(ts int64, d D) error {
	b.ts = ts
	prev := b.emitting
	b.emitting = true
	defer func() { b.emitting = prev }()
	return b.events.Emit(EventChange, d)
}
