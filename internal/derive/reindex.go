package derive

import "github.com/roach88/ripple/internal/store"

// Bucket groups the items of a collection sharing one index value.
type Bucket[I comparable, T any] struct {
	Index I
	Items []T
}

// BucketIndex is the key function of a reindexed collection.
func BucketIndex[I comparable, T any](b Bucket[I, T]) I {
	return b.Index
}

// Reindex returns a set collection of buckets, one per distinct indexFn
// value among the items of src. Items keep their upstream arrival order
// within a bucket.
//
// Each upstream change reports the buckets it touched: a bucket that
// appeared is added, one that became empty is removed, and any other
// touched bucket is updated.
func Reindex[K comparable, T any, I comparable](src *store.Collection[K, T], indexFn func(T) I, opts ...store.Option) (*store.Collection[I, Bucket[I, T]], error) {
	dst, err := store.NewSet(BucketIndex[I, T], nil, inherit(src, opts)...)
	if err != nil {
		return nil, err
	}
	r := &reindexer[K, T, I]{
		src:     src,
		indexFn: indexFn,
		of:      make(map[K]I),
		buckets: make(map[I]*bucket[K, T]),
	}

	if err := dst.SetAt(r.patch(store.CollectionDelta[T]{Added: src.Get()}), src.TS()); err != nil {
		return nil, err
	}
	dst.AddCleanup(src.OnChange(func(d store.CollectionDelta[T]) error {
		return dst.SetAt(r.patch(d), d.TS)
	}))
	return dst, nil
}

type bucket[K comparable, T any] struct {
	keys  []K
	items map[K]T
}

func (b *bucket[K, T]) put(k K, item T) {
	if _, ok := b.items[k]; !ok {
		b.keys = append(b.keys, k)
	}
	b.items[k] = item
}

func (b *bucket[K, T]) del(k K) {
	if _, ok := b.items[k]; !ok {
		return
	}
	delete(b.items, k)
	for i, bk := range b.keys {
		if bk == k {
			b.keys = append(b.keys[:i], b.keys[i+1:]...)
			return
		}
	}
}

func (b *bucket[K, T]) list() []T {
	out := make([]T, 0, len(b.keys))
	for _, k := range b.keys {
		out = append(out, b.items[k])
	}
	return out
}

type reindexer[K comparable, T any, I comparable] struct {
	src     *store.Collection[K, T]
	indexFn func(T) I
	of      map[K]I
	buckets map[I]*bucket[K, T]
}

func (r *reindexer[K, T, I]) patch(d store.CollectionDelta[T]) store.Patch[Bucket[I, T]] {
	var touched []I
	existed := make(map[I]bool)
	touch := func(i I) {
		if _, seen := existed[i]; seen {
			return
		}
		_, ok := r.buckets[i]
		existed[i] = ok
		touched = append(touched, i)
	}
	remove := func(k K) {
		i, ok := r.of[k]
		if !ok {
			return
		}
		touch(i)
		delete(r.of, k)
		b := r.buckets[i]
		b.del(k)
		if len(b.keys) == 0 {
			delete(r.buckets, i)
		}
	}
	add := func(k K, item T) {
		i := r.indexFn(item)
		touch(i)
		r.of[k] = i
		b, ok := r.buckets[i]
		if !ok {
			b = &bucket[K, T]{items: make(map[K]T)}
			r.buckets[i] = b
		}
		b.put(k, item)
	}

	// Same order as the upstream applied d: added, updated, removed.
	for _, item := range d.Added {
		add(r.src.KeyOf(item), item)
	}
	for _, item := range d.Updated {
		k := r.src.KeyOf(item)
		if i, ok := r.of[k]; ok && i == r.indexFn(item) {
			touch(i)
			r.buckets[i].put(k, item)
			continue
		}
		remove(k)
		add(k, item)
	}
	for _, item := range d.Removed {
		remove(r.src.KeyOf(item))
	}

	var p store.Patch[Bucket[I, T]]
	for _, i := range touched {
		b, now := r.buckets[i]
		switch {
		case existed[i] && now:
			p.Updated = append(p.Updated, Bucket[I, T]{Index: i, Items: b.list()})
		case now:
			p.Added = append(p.Added, Bucket[I, T]{Index: i, Items: b.list()})
		case existed[i]:
			p.Removed = append(p.Removed, Bucket[I, T]{Index: i})
		}
	}
	return p
}
