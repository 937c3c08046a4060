package derive

import "github.com/roach88/ripple/internal/store"

// Source is any store: it can report its changes by timestamp.
type Source interface {
	Watch(fn func(ts int64) error) (off func())
}

// Value is a Source with a readable value. *store.Store[V],
// *store.Collection[K, T] (V = []T) and *store.Counter[K, T, E]
// (V = map[E]int) all satisfy it.
type Value[V any] interface {
	Source
	Get() V
}

// Derive1 returns a value store holding fn(a.Get()), recomputed on every
// change of a.
func Derive1[A, V any](a Value[A], fn func(A) V, opts ...store.Option) *store.Store[V] {
	return DeriveN(func() V { return fn(a.Get()) }, opts, a)
}

// Derive2 returns a value store holding fn(a.Get(), b.Get()), recomputed on
// every change of a or b.
func Derive2[A, B, V any](a Value[A], b Value[B], fn func(A, B) V, opts ...store.Option) *store.Store[V] {
	return DeriveN(func() V { return fn(a.Get(), b.Get()) }, opts, a, b)
}

// Derive3 is Derive2 for three stores.
func Derive3[A, B, C, V any](a Value[A], b Value[B], c Value[C], fn func(A, B, C) V, opts ...store.Option) *store.Store[V] {
	return DeriveN(func() V { return fn(a.Get(), b.Get(), c.Get()) }, opts, a, b, c)
}

// DeriveN returns a value store holding compute(), recomputed in full on
// every change of any source. The new value is stamped with the timestamp
// of the upstream change.
func DeriveN[V any](compute func() V, opts []store.Option, sources ...Source) *store.Store[V] {
	s := store.New(compute(), opts...)
	for _, src := range sources {
		s.AddCleanup(src.Watch(func(ts int64) error {
			return s.SetAt(compute(), ts)
		}))
	}
	return s
}
