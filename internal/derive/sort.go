package derive

import "github.com/roach88/ripple/internal/store"

// Sort returns an array collection holding the items of src ordered by
// cmp. Upstream deltas are forwarded unchanged; the array places them.
func Sort[K comparable, T any](src *store.Collection[K, T], cmp func(a, b T) int, opts ...store.Option) (*store.Collection[K, T], error) {
	dst, err := store.NewArray(src.KeyFunc(), cmp, nil, inherit(src, opts)...)
	if err != nil {
		return nil, err
	}
	if err := dst.SetAt(store.Patch[T]{Added: src.Get()}, src.TS()); err != nil {
		return nil, err
	}
	dst.AddCleanup(src.OnChange(func(d store.CollectionDelta[T]) error {
		return dst.SetAt(store.Patch[T]{Added: d.Added, Updated: d.Updated, Removed: d.Removed}, d.TS)
	}))
	return dst, nil
}
