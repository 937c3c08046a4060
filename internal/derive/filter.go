package derive

import (
	"strings"

	"github.com/roach88/ripple/internal/store"
)

// Filter returns a collection of the items of src satisfying pred. The
// result is a clone of src, so it is array-backed when src is.
//
// On an upstream change only the changed items are tested again.
func Filter[K comparable, T any](src *store.Collection[K, T], pred func(T) bool, opts ...store.Option) (*store.Collection[K, T], error) {
	dst := src.Clone(opts...)
	f := &filterer[K, T]{src: src, dst: dst, test: pred}

	if err := dst.SetAt(f.rescan(src.Get()), src.TS()); err != nil {
		return nil, err
	}
	dst.AddCleanup(src.OnChange(f.onCollectionChange))
	return dst, nil
}

// Param is a parameter store of FilterBy. Build one with ParamOf.
type Param struct {
	get   func() any
	watch func(fn func(narrowing bool, ts int64) error) (off func())
}

// ParamOf wraps s as a FilterBy parameter. When incremental is non-nil and
// returns true for a change of s, the caller asserts the new value can only
// narrow the result, so only the items currently in it are tested again.
// Narrowing is a ready-made incremental test for search strings.
func ParamOf[P any](s *store.Store[P], incremental func(store.Delta[P]) bool) Param {
	return Param{
		get: func() any { return s.Get() },
		watch: func(fn func(bool, int64) error) func() {
			return s.OnChange(func(d store.Delta[P]) error {
				return fn(incremental != nil && incremental(d), d.TS)
			})
		},
	}
}

// FilterBy returns a collection of the items of src satisfying
// pred(item, values), where values holds the current value of each param
// in order.
//
// When a param changes, every upstream item is tested again, unless that
// param's incremental test holds for the change.
func FilterBy[K comparable, T any](
	src *store.Collection[K, T],
	params []Param,
	pred func(item T, values []any) bool,
	opts ...store.Option,
) (*store.Collection[K, T], error) {
	dst := src.Clone(opts...)
	f := &filterer[K, T]{
		src: src,
		dst: dst,
		test: func(item T) bool {
			values := make([]any, len(params))
			for i, p := range params {
				values[i] = p.get()
			}
			return pred(item, values)
		},
	}

	if err := dst.SetAt(f.rescan(src.Get()), src.TS()); err != nil {
		return nil, err
	}
	dst.AddCleanup(src.OnChange(f.onCollectionChange))
	for _, p := range params {
		dst.AddCleanup(p.watch(func(narrowing bool, ts int64) error {
			if narrowing {
				return dst.SetAt(f.rescan(dst.Get()), ts)
			}
			return dst.SetAt(f.rescan(src.Get()), ts)
		}))
	}
	return dst, nil
}

// Narrowing reports whether a string param only became more specific:
// every item matching the new value by substring also matched the old one.
func Narrowing(d store.Delta[string]) bool {
	return strings.Contains(d.NewValue, d.OldValue)
}

type filterer[K comparable, T any] struct {
	src  *store.Collection[K, T]
	dst  *store.Collection[K, T]
	test func(T) bool
}

// rescan tests items against the predicate and returns the patch that
// brings dst in line: failing items that are present leave, passing items
// that are absent join.
func (f *filterer[K, T]) rescan(items []T) store.Patch[T] {
	var p store.Patch[T]
	for _, item := range items {
		old, present := f.dst.Lookup(f.dst.KeyOf(item))
		pass := f.test(item)
		switch {
		case present && !pass:
			p.Removed = append(p.Removed, old)
		case !present && pass:
			p.Added = append(p.Added, item)
		}
	}
	return p
}

// onCollectionChange tests the changed items in the order the upstream
// applied them, so a key added and removed in one patch nets out.
func (f *filterer[K, T]) onCollectionChange(d store.CollectionDelta[T]) error {
	cs := newChangeSet(f.dst)
	for _, item := range d.Added {
		if f.test(item) {
			cs.set(item)
		}
	}
	for _, item := range d.Updated {
		if f.test(item) {
			cs.set(item)
		} else {
			cs.unset(f.dst.KeyOf(item))
		}
	}
	for _, item := range d.Removed {
		cs.unset(f.dst.KeyOf(item))
	}
	return f.dst.SetAt(cs.patch(), d.TS)
}
