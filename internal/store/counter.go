package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// Counter counts the elements extracted from a keyed set of items.
//
// Items are patched like any collection (keyed by key, same add/update/remove
// rules), but the value is a map from element to occurrence count and the
// emitted delta lists elements: Added when a count rises from zero, Removed
// when it drops to zero, Updated when it changes between non-zero values.
type Counter[K comparable, T any, E comparable] struct {
	base[CollectionDelta[E]]
	key     func(T) K
	extract func(T) []E
	index   map[K]T
	order   []K
	counts  map[E]int
	cache   map[K][]E
	before  map[E]int
	touched []E
	delta   *CollectionDelta[E]
}

// NewCounter creates an empty counter.
func NewCounter[K comparable, T any, E comparable](key func(T) K, extract func(T) []E, opts ...Option) *Counter[K, T, E] {
	return newCounter(key, extract, newConfig(opts))
}

func newCounter[K comparable, T any, E comparable](key func(T) K, extract func(T) []E, cfg config) *Counter[K, T, E] {
	return &Counter[K, T, E]{
		base:    newBase[CollectionDelta[E]](cfg),
		key:     key,
		extract: extract,
		index:   make(map[K]T),
		counts:  make(map[E]int),
		cache:   make(map[K][]E),
		before:  make(map[E]int),
	}
}

// Get returns a copy of the element counts. Elements with a zero count are
// not present.
func (c *Counter[K, T, E]) Get() map[E]int {
	return maps.Clone(c.counts)
}

// CountOf returns the count of e.
func (c *Counter[K, T, E]) CountOf(e E) int {
	return c.counts[e]
}

// Len returns the number of distinct elements.
func (c *Counter[K, T, E]) Len() int {
	return len(c.counts)
}

// Items returns the number of items contributing to the counts.
func (c *Counter[K, T, E]) Items() int {
	return len(c.index)
}

// LastDelta returns the delta of the last accepted update.
func (c *Counter[K, T, E]) LastDelta() (CollectionDelta[E], bool) {
	if c.delta == nil {
		return CollectionDelta[E]{}, false
	}
	return *c.delta, true
}

// Set applies an item patch stamped with the store's clock.
func (c *Counter[K, T, E]) Set(p Patch[T]) error {
	return c.SetAt(p, c.cfg.clock.Now())
}

// SetAt applies an item patch stamped ts. Item-level rules are those of
// Collection.SetAt. The update is a no-op when no element count changed,
// which happens when an element only moved between items.
func (c *Counter[K, T, E]) SetAt(p Patch[T], ts int64) error {
	if err := c.admit(ts); err != nil {
		return err
	}
	if p.Empty() {
		return nil
	}
	if _, err := applyPatch(c.cfg.name, c.index, c.key, counterStorage[K, T, E]{c}, p); err != nil {
		return err
	}

	d := c.buildDelta(ts)
	if d.Empty() {
		return nil
	}
	c.delta = &d
	return c.publish(ts, d)
}

// SetAsync stamps the update before calling produce, then applies the patch
// it returns. See Store.SetAsync.
func (c *Counter[K, T, E]) SetAsync(ctx context.Context, produce PatchProducer[T]) error {
	ts := c.cfg.clock.Now()
	items := make([]T, 0, len(c.order))
	for _, k := range c.order {
		items = append(items, c.index[k])
	}
	p, err := produce(ctx, items)
	if err != nil {
		return fmt.Errorf("produce patch: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.SetAt(p, ts)
}

// Clone returns an empty counter with the same key and extract functions.
func (c *Counter[K, T, E]) Clone(opts ...Option) *Counter[K, T, E] {
	return newCounter(c.key, c.extract, c.cfg.forClone(opts))
}

// count applies dir (+1 or -1) to every element in els, recording each
// element's count before its first change in this update.
func (c *Counter[K, T, E]) count(els []E, dir int) {
	for _, e := range els {
		n := c.counts[e]
		if _, ok := c.before[e]; !ok {
			c.before[e] = n
			c.touched = append(c.touched, e)
		}
		n += dir
		if n == 0 {
			delete(c.counts, e)
		} else {
			c.counts[e] = n
		}
	}
}

func (c *Counter[K, T, E]) buildDelta(ts int64) CollectionDelta[E] {
	d := CollectionDelta[E]{TS: ts}
	for _, e := range c.touched {
		was, now := c.before[e], c.counts[e]
		switch {
		case was == now:
			// moved between items within this update
		case was == 0:
			d.Added = append(d.Added, e)
		case now == 0:
			d.Removed = append(d.Removed, e)
		default:
			d.Updated = append(d.Updated, e)
		}
	}
	return d
}

// counterStorage adapts a Counter to the batch algorithm. Removal uses the
// elements cached when the item was added, never a fresh extraction: an
// item mutated in place would otherwise decrement the wrong elements.
type counterStorage[K comparable, T any, E comparable] struct {
	c *Counter[K, T, E]
}

func (s counterStorage[K, T, E]) begin() {
	clear(s.c.before)
	s.c.touched = s.c.touched[:0]
}

func (s counterStorage[K, T, E]) addItem(k K, item T) {
	s.c.order = append(s.c.order, k)
	s.recount(k, item)
}

// updateItem keeps the item's place in insertion order.
func (s counterStorage[K, T, E]) updateItem(k K, _, item T) {
	s.c.count(s.c.cache[k], -1)
	s.recount(k, item)
}

func (s counterStorage[K, T, E]) removeItem(k K, _ T) {
	s.c.count(s.c.cache[k], -1)
	delete(s.c.cache, k)
	if i := slices.Index(s.c.order, k); i >= 0 {
		s.c.order = slices.Delete(s.c.order, i, i+1)
	}
}

func (s counterStorage[K, T, E]) recount(k K, item T) {
	els := slices.Clone(s.c.extract(item))
	s.c.cache[k] = els
	s.c.count(els, 1)
}

func (s counterStorage[K, T, E]) commit() {}
