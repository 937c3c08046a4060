package derive

import "github.com/roach88/ripple/internal/store"

// Range selects a window of an ordered collection with slice semantics:
// items from Start up to but excluding End. Negative bounds count from the
// end of the collection; out-of-range bounds are clamped.
type Range struct {
	Start int
	End   int
}

// Bounds resolves r against a collection of n items and returns the
// half-open window [lo, hi). The window is empty when hi <= lo.
func (r Range) Bounds(n int) (lo, hi int) {
	lo = clampIndex(r.Start, n)
	hi = clampIndex(r.End, n)
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// Width returns the number of items the range would select if the
// collection were large enough, or -1 when a bound is negative and the
// width depends on the collection size.
func (r Range) Width() int {
	if r.Start < 0 || r.End < 0 {
		return -1
	}
	return max(r.End-r.Start, 0)
}

func clampIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	return min(max(i, 0), n)
}

// Slice returns the window rng of the ordered collection src. The result is
// a clone of src and is itself ordered. Slice fails with NOT_ORDERED when
// src is set-backed.
//
// An upstream change that cannot affect the window is skipped: the window
// is full, nothing was updated, both bounds are non-negative, and every
// added or removed item sorts strictly after the last item of the window.
// Any other change recomputes the window and diffs it by key.
func Slice[K comparable, T any](src *store.Collection[K, T], rng *store.Store[Range], opts ...store.Option) (*store.Collection[K, T], error) {
	if !src.Ordered() {
		return nil, store.NewNotOrderedError(src.Name(), "slice")
	}
	dst := src.Clone(opts...)
	s := &slicer[K, T]{src: src, dst: dst, rng: rng}

	if err := s.reslice(nil, src.TS()); err != nil {
		return nil, err
	}
	dst.AddCleanup(src.OnChange(s.onCollectionChange))
	dst.AddCleanup(rng.OnChange(func(d store.Delta[Range]) error {
		return s.reslice(nil, d.TS)
	}))
	return dst, nil
}

type slicer[K comparable, T any] struct {
	src *store.Collection[K, T]
	dst *store.Collection[K, T]
	rng *store.Store[Range]
}

func (s *slicer[K, T]) onCollectionChange(d store.CollectionDelta[T]) error {
	if s.unaffected(d) {
		return nil
	}
	updated := make(map[K]struct{}, len(d.Updated))
	for _, item := range d.Updated {
		updated[s.src.KeyOf(item)] = struct{}{}
	}
	return s.reslice(updated, d.TS)
}

// unaffected reports whether d only touches items past the end of a full
// window.
func (s *slicer[K, T]) unaffected(d store.CollectionDelta[T]) bool {
	r := s.rng.Get()
	width := r.Width()
	window := s.dst.Get()
	if len(d.Updated) > 0 || width <= 0 || len(window) != width {
		return false
	}
	last := window[len(window)-1]
	for _, items := range [][]T{d.Added, d.Removed} {
		for _, item := range items {
			if s.src.Compare(item, last) <= 0 {
				return false
			}
		}
	}
	return true
}

// reslice recomputes the window and diffs it against the current one.
// Items in both windows are reported updated only when their key is in
// updated.
func (s *slicer[K, T]) reslice(updated map[K]struct{}, ts int64) error {
	items := s.src.Get()
	lo, hi := s.rng.Get().Bounds(len(items))
	next := items[lo:hi]

	var p store.Patch[T]
	inNext := make(map[K]struct{}, len(next))
	for _, item := range next {
		k := s.src.KeyOf(item)
		inNext[k] = struct{}{}
		if !s.dst.Has(k) {
			p.Added = append(p.Added, item)
			continue
		}
		if _, ok := updated[k]; ok {
			p.Updated = append(p.Updated, item)
		}
	}
	for _, item := range s.dst.Get() {
		if _, ok := inNext[s.dst.KeyOf(item)]; !ok {
			p.Removed = append(p.Removed, item)
		}
	}
	return s.dst.SetAt(p, ts)
}
