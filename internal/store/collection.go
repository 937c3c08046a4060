package store

import (
	"context"
	"fmt"
)

// itemStorage is a storage that can also materialize its items.
type itemStorage[K comparable, T any] interface {
	storage[K, T]
	items() []T
}

// Collection is an observable keyed collection. Each item is identified by
// key(item), which must stay stable while the item is present.
//
// A Collection is either set-backed (NewSet) or array-backed (NewArray);
// the variant only changes how items are materialized, not how patches
// are applied.
type Collection[K comparable, T any] struct {
	base[CollectionDelta[T]]
	key      func(T) K
	cmp      func(a, b T) int
	index    map[K]T
	st       itemStorage[K, T]
	delta    *CollectionDelta[T]
	snapshot []T
	fresh    bool
	spawn    func(cfg config) *Collection[K, T]
}

// NewSet creates a set-backed collection holding items.
// It fails with DUPLICATE_KEY if two items share a key.
func NewSet[K comparable, T any](key func(T) K, items []T, opts ...Option) (*Collection[K, T], error) {
	c := newSet(key, newConfig(opts))
	if err := c.seed(items); err != nil {
		return nil, err
	}
	return c, nil
}

func newSet[K comparable, T any](key func(T) K, cfg config) *Collection[K, T] {
	index := make(map[K]T)
	return &Collection[K, T]{
		base:  newBase[CollectionDelta[T]](cfg),
		key:   key,
		index: index,
		st:    newSetStorage[K, T](index),
		spawn: func(cfg config) *Collection[K, T] { return newSet(key, cfg) },
	}
}

// NewArray creates an array-backed collection kept ascending by cmp.
// cmp returns a negative number when a sorts before b, positive when after
// and zero when they tie; tied items keep their insertion order.
func NewArray[K comparable, T any](key func(T) K, cmp func(a, b T) int, items []T, opts ...Option) (*Collection[K, T], error) {
	c := newArray(key, cmp, newConfig(opts))
	if err := c.seed(items); err != nil {
		return nil, err
	}
	return c, nil
}

func newArray[K comparable, T any](key func(T) K, cmp func(a, b T) int, cfg config) *Collection[K, T] {
	return &Collection[K, T]{
		base:  newBase[CollectionDelta[T]](cfg),
		key:   key,
		cmp:   cmp,
		index: make(map[K]T),
		st:    newArrayStorage[K, T](cmp),
		spawn: func(cfg config) *Collection[K, T] { return newArray(key, cmp, cfg) },
	}
}

// seed loads the initial items without emitting or stamping anything.
func (c *Collection[K, T]) seed(items []T) error {
	if len(items) == 0 {
		return nil
	}
	if _, err := applyPatch(c.cfg.name, c.index, c.key, c.st, Patch[T]{Added: items}); err != nil {
		return fmt.Errorf("initial items: %w", err)
	}
	return nil
}

// Get returns the items: in comparator order for an array collection, in
// insertion order for a set collection. The returned slice is shared and
// must not be modified.
func (c *Collection[K, T]) Get() []T {
	if !c.fresh {
		c.snapshot = c.st.items()
		c.fresh = true
	}
	return c.snapshot
}

// Len returns the number of items.
func (c *Collection[K, T]) Len() int {
	return len(c.index)
}

// Lookup returns the item stored under k.
func (c *Collection[K, T]) Lookup(k K) (T, bool) {
	item, ok := c.index[k]
	return item, ok
}

// Has reports whether an item is stored under k.
func (c *Collection[K, T]) Has(k K) bool {
	_, ok := c.index[k]
	return ok
}

// KeyOf returns the key of item.
func (c *Collection[K, T]) KeyOf(item T) K {
	return c.key(item)
}

// KeyFunc returns the key function.
func (c *Collection[K, T]) KeyFunc() func(T) K {
	return c.key
}

// Ordered reports whether the collection is array-backed.
func (c *Collection[K, T]) Ordered() bool {
	return c.cmp != nil
}

// Compare orders a and b with the collection's comparator.
// It panics on a set-backed collection; check Ordered first.
func (c *Collection[K, T]) Compare(a, b T) int {
	if c.cmp == nil {
		panic("store: Compare on a set-backed collection")
	}
	return c.cmp(a, b)
}

// LastDelta returns the delta of the last accepted update.
func (c *Collection[K, T]) LastDelta() (CollectionDelta[T], bool) {
	if c.delta == nil {
		return CollectionDelta[T]{}, false
	}
	return *c.delta, true
}

// Set applies p stamped with the store's clock.
func (c *Collection[K, T]) Set(p Patch[T]) error {
	return c.SetAt(p, c.cfg.clock.Now())
}

// SetAt applies p stamped ts.
//
// Added items with a key already present fail the whole patch with
// DUPLICATE_KEY and nothing is applied. Updated and removed items whose key
// is absent are dropped silently. A patch with nothing accepted is a no-op.
func (c *Collection[K, T]) SetAt(p Patch[T], ts int64) error {
	if err := c.admit(ts); err != nil {
		return err
	}
	accepted, err := applyPatch(c.cfg.name, c.index, c.key, c.st, p)
	if err != nil {
		return err
	}
	if accepted.Empty() {
		return nil
	}

	c.fresh = false
	d := CollectionDelta[T]{
		Added:   accepted.Added,
		Updated: accepted.Updated,
		Removed: accepted.Removed,
		TS:      ts,
	}
	c.delta = &d
	return c.publish(ts, d)
}

// PatchProducer computes a patch from the current items. It may block.
type PatchProducer[T any] func(ctx context.Context, current []T) (Patch[T], error)

// SetAsync stamps the update before calling produce, then applies the patch
// it returns. See Store.SetAsync.
func (c *Collection[K, T]) SetAsync(ctx context.Context, produce PatchProducer[T]) error {
	ts := c.cfg.clock.Now()
	p, err := produce(ctx, c.Get())
	if err != nil {
		return fmt.Errorf("produce patch: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.SetAt(p, ts)
}

// Clone returns an empty collection of the same variant with the same key
// function and comparator, timestamp 0, no listeners and no cleanups.
// opts apply on top of the inherited settings.
func (c *Collection[K, T]) Clone(opts ...Option) *Collection[K, T] {
	return c.spawn(c.cfg.forClone(opts))
}
