package derive

import (
	"log/slog"

	"github.com/roach88/ripple/internal/clock"
	"github.com/roach88/ripple/internal/store"
)

// Count returns a counter of the elements extract yields for the items of
// src. The counter follows src by feeding it the upstream item deltas.
func Count[K comparable, T any, E comparable](src *store.Collection[K, T], extract func(T) []E, opts ...store.Option) (*store.Counter[K, T, E], error) {
	dst := store.NewCounter(src.KeyFunc(), extract, inherit(src, opts)...)
	if err := dst.SetAt(store.Patch[T]{Added: src.Get()}, src.TS()); err != nil {
		return nil, err
	}
	dst.AddCleanup(src.OnChange(func(d store.CollectionDelta[T]) error {
		return dst.SetAt(store.Patch[T]{Added: d.Added, Updated: d.Updated, Removed: d.Removed}, d.TS)
	}))
	return dst, nil
}

type upstream interface {
	Clock() clock.Clock
	Logger() *slog.Logger
}

// inherit prefixes opts with the clock and logger of src so fresh targets
// behave like clones unless the caller overrides them.
func inherit(src upstream, opts []store.Option) []store.Option {
	return append([]store.Option{store.WithClock(src.Clock()), store.WithLogger(src.Logger())}, opts...)
}
