package store

// arrayStorage keeps items sorted ascending by cmp.
//
// Insertion is a binary search plus a shift. Removal only marks the entry;
// commit drops every marked entry in a single pass, so a bulk removal costs
// one O(n) sweep instead of one splice per item. Entries are tracked by
// identity, which keeps an update (remove old, insert new under the same
// key) from sweeping away the new item.
type arrayStorage[K comparable, T any] struct {
	cmp     func(a, b T) int
	entries []*arrayEntry[T]
	live    map[K]*arrayEntry[T]
	marked  int
}

type arrayEntry[T any] struct {
	item    T
	removed bool
}

func newArrayStorage[K comparable, T any](cmp func(a, b T) int) *arrayStorage[K, T] {
	return &arrayStorage[K, T]{
		cmp:  cmp,
		live: make(map[K]*arrayEntry[T]),
	}
}

func (s *arrayStorage[K, T]) begin() {
	s.marked = 0
}

func (s *arrayStorage[K, T]) addItem(k K, item T) {
	e := &arrayEntry[T]{item: item}
	i := searchRight(len(s.entries), func(i int) T { return s.entries[i].item }, item, s.cmp)
	s.entries = insertAt(s.entries, i, e)
	s.live[k] = e
}

func (s *arrayStorage[K, T]) updateItem(k K, old, item T) {
	s.removeItem(k, old)
	s.addItem(k, item)
}

func (s *arrayStorage[K, T]) removeItem(k K, _ T) {
	e, ok := s.live[k]
	if !ok {
		return
	}
	e.removed = true
	delete(s.live, k)
	s.marked++
}

func (s *arrayStorage[K, T]) commit() {
	if s.marked == 0 {
		return
	}
	kept := s.entries[:0]
	for _, e := range s.entries {
		if !e.removed {
			kept = append(kept, e)
		}
	}
	clear(s.entries[len(kept):])
	s.entries = kept
	s.marked = 0
}

func (s *arrayStorage[K, T]) items() []T {
	out := make([]T, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.item
	}
	return out
}
