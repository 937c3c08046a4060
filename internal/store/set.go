package store

// setStorage backs a set collection. The value is an unordered set, but
// iteration follows insertion order so that every derived store sees items
// in a reproducible sequence. Removal leaves a tombstone that is compacted
// away once tombstones outnumber live slots.
type setStorage[K comparable, T any] struct {
	index map[K]T
	slots []setSlot[K]
	pos   map[K]int
	dead  int
}

type setSlot[K comparable] struct {
	key  K
	live bool
}

func newSetStorage[K comparable, T any](index map[K]T) *setStorage[K, T] {
	return &setStorage[K, T]{
		index: index,
		pos:   make(map[K]int),
	}
}

func (s *setStorage[K, T]) begin() {}

func (s *setStorage[K, T]) addItem(k K, _ T) {
	s.pos[k] = len(s.slots)
	s.slots = append(s.slots, setSlot[K]{key: k, live: true})
}

func (s *setStorage[K, T]) updateItem(k K, old, item T) {
	s.removeItem(k, old)
	s.addItem(k, item)
}

func (s *setStorage[K, T]) removeItem(k K, _ T) {
	i, ok := s.pos[k]
	if !ok {
		return
	}
	s.slots[i].live = false
	delete(s.pos, k)
	s.dead++
}

func (s *setStorage[K, T]) commit() {
	if s.dead == 0 || s.dead*2 < len(s.slots) {
		return
	}
	live := make([]setSlot[K], 0, len(s.pos))
	for _, slot := range s.slots {
		if slot.live {
			s.pos[slot.key] = len(live)
			live = append(live, slot)
		}
	}
	s.slots = live
	s.dead = 0
}

func (s *setStorage[K, T]) items() []T {
	out := make([]T, 0, len(s.pos))
	for _, slot := range s.slots {
		if slot.live {
			out = append(out, s.index[slot.key])
		}
	}
	return out
}
