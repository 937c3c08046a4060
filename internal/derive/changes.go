package derive

import "github.com/roach88/ripple/internal/store"

// changeSet folds a sequence of per-key sets and unsets against dst into one
// patch holding the net result for each key. Keys present in dst before the
// first change and after the last one are reported as Updated, including a
// key that was removed and added again.
type changeSet[K comparable, T any] struct {
	dst   *store.Collection[K, T]
	order []K
	state map[K]*netChange[T]
}

type netChange[T any] struct {
	before  bool
	present bool
	item    T
}

func newChangeSet[K comparable, T any](dst *store.Collection[K, T]) *changeSet[K, T] {
	return &changeSet[K, T]{dst: dst, state: make(map[K]*netChange[T])}
}

func (c *changeSet[K, T]) entry(k K) *netChange[T] {
	e, ok := c.state[k]
	if !ok {
		e = &netChange[T]{before: c.dst.Has(k)}
		c.state[k] = e
		c.order = append(c.order, k)
	}
	return e
}

func (c *changeSet[K, T]) set(item T) {
	e := c.entry(c.dst.KeyOf(item))
	e.present = true
	e.item = item
}

func (c *changeSet[K, T]) unset(k K) {
	e := c.entry(k)
	e.present = false
	var zero T
	e.item = zero
}

// patch returns the net patch, in the order keys were first touched.
func (c *changeSet[K, T]) patch() store.Patch[T] {
	var p store.Patch[T]
	for _, k := range c.order {
		e := c.state[k]
		switch {
		case e.before && e.present:
			p.Updated = append(p.Updated, e.item)
		case e.present:
			p.Added = append(p.Added, e.item)
		case e.before:
			if old, ok := c.dst.Lookup(k); ok {
				p.Removed = append(p.Removed, old)
			}
		}
	}
	return p
}
