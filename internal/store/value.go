package store

import (
	"context"
	"fmt"
	"reflect"
)

// Delta describes one accepted update of a value store.
type Delta[V any] struct {
	OldValue V
	NewValue V
	TS       int64
}

// Producer computes a new value from the current one. It may block.
type Producer[V any] func(ctx context.Context, current V) (V, error)

// Store is an observable container for a single value.
type Store[V any] struct {
	base[Delta[V]]
	value V
	delta *Delta[V]
	equal func(a, b V) bool
}

// New creates a value store holding initial. Its timestamp starts at 0.
func New[V any](initial V, opts ...Option) *Store[V] {
	return newStore(initial, newConfig(opts))
}

func newStore[V any](initial V, cfg config) *Store[V] {
	s := &Store[V]{
		base:  newBase[Delta[V]](cfg),
		value: initial,
		equal: primitiveEqual[V],
	}
	if cfg.equal != nil {
		eq, ok := cfg.equal.(func(a, b V) bool)
		if !ok {
			panic(fmt.Sprintf("store: WithEqual function %T does not match value type %T", cfg.equal, initial))
		}
		s.equal = eq
	}
	return s
}

// Get returns the current value.
func (s *Store[V]) Get() V {
	return s.value
}

// LastDelta returns the delta of the last accepted update.
func (s *Store[V]) LastDelta() (Delta[V], bool) {
	if s.delta == nil {
		return Delta[V]{}, false
	}
	return *s.delta, true
}

// Set stores v stamped with the store's clock.
func (s *Store[V]) Set(v V) error {
	return s.SetAt(v, s.cfg.clock.Now())
}

// SetAt stores v stamped ts.
//
// It fails with OUT_OF_ORDER_TIMESTAMP when ts is older than the current
// timestamp. Setting a primitive value equal to the current one is a no-op:
// nothing is emitted and the timestamp does not move. Composite values
// (slices, maps, structs, pointers) always count as a change.
func (s *Store[V]) SetAt(v V, ts int64) error {
	if err := s.admit(ts); err != nil {
		return err
	}
	if s.equal(s.value, v) {
		return nil
	}

	d := Delta[V]{OldValue: s.value, NewValue: v, TS: ts}
	s.value = v
	s.delta = &d
	return s.publish(ts, d)
}

// SetAsync stamps the update before calling produce, then stores its result.
//
// Because the timestamp is taken at call time, a producer that resolves after
// a newer Set fails with OUT_OF_ORDER_TIMESTAMP instead of overwriting the
// newer value. Callers decide whether to discard or retry.
//
// SetAsync blocks while produce runs. To run producers off the update
// goroutine use engine.SetAsync.
func (s *Store[V]) SetAsync(ctx context.Context, produce Producer[V]) error {
	ts := s.cfg.clock.Now()
	v, err := produce(ctx, s.value)
	if err != nil {
		return fmt.Errorf("produce value: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.SetAt(v, ts)
}

// Clone returns an empty store of the same kind: zero value, timestamp 0,
// no listeners and no cleanups. opts apply on top of the inherited settings.
func (s *Store[V]) Clone(opts ...Option) *Store[V] {
	var zero V
	cfg := s.cfg.forClone(opts)
	c := newStore(zero, cfg)
	if cfg.equal == nil {
		c.equal = s.equal
	}
	return c
}

// primitiveEqual reports strict equality for scalar kinds. Everything else
// is compared by identity elsewhere and counts as changed here.
func primitiveEqual[V any](a, b V) bool {
	av, bv := any(a), any(b)
	if av == nil || bv == nil {
		return av == nil && bv == nil
	}
	switch reflect.TypeOf(av).Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		return av == bv
	default:
		return false
	}
}
