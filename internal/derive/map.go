package derive

import "github.com/roach88/ripple/internal/store"

// Map returns a set collection holding fn(item) for every item of src,
// keyed by newKey.
//
// The mapped key of each source item is remembered, so an update that
// changes the mapped key removes the old entry and adds the new one.
func Map[K comparable, T any, K2 comparable, U any](src *store.Collection[K, T], newKey func(U) K2, fn func(T) U, opts ...store.Option) (*store.Collection[K2, U], error) {
	dst, err := store.NewSet(newKey, nil, inherit(src, opts)...)
	if err != nil {
		return nil, err
	}
	m := &mapper[K, T, K2, U]{src: src, dst: dst, fn: fn, keys: make(map[K]K2), owner: make(map[K2]K)}

	if err := dst.SetAt(m.patch(store.CollectionDelta[T]{Added: src.Get()}), src.TS()); err != nil {
		return nil, err
	}
	dst.AddCleanup(src.OnChange(func(d store.CollectionDelta[T]) error {
		return dst.SetAt(m.patch(d), d.TS)
	}))
	return dst, nil
}

type mapper[K comparable, T any, K2 comparable, U any] struct {
	src  *store.Collection[K, T]
	dst  *store.Collection[K2, U]
	fn   func(T) U
	keys map[K]K2

	// owner is the source key whose item is stored under each mapped key.
	owner map[K2]K
}

// patch folds d into the net change for each mapped key, following the
// upstream's own order: added, then updated, then removed.
func (m *mapper[K, T, K2, U]) patch(d store.CollectionDelta[T]) store.Patch[U] {
	cs := newChangeSet(m.dst)
	put := func(item T) {
		k := m.src.KeyOf(item)
		u := m.fn(item)
		k2 := m.dst.KeyOf(u)
		if old, ok := m.keys[k]; ok && old != k2 {
			m.release(cs, k, old)
		}
		m.keys[k] = k2
		m.owner[k2] = k
		cs.set(u)
	}
	for _, item := range d.Added {
		put(item)
	}
	for _, item := range d.Updated {
		put(item)
	}
	for _, item := range d.Removed {
		k := m.src.KeyOf(item)
		if k2, ok := m.keys[k]; ok {
			delete(m.keys, k)
			m.release(cs, k, k2)
		}
	}
	return cs.patch()
}

// release unsets k2 unless another source key has taken it over.
func (m *mapper[K, T, K2, U]) release(cs *changeSet[K2, U], k K, k2 K2) {
	if m.owner[k2] != k {
		return
	}
	delete(m.owner, k2)
	cs.unset(k2)
}
