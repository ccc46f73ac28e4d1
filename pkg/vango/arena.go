package vango

// slab is an index-stable arena. Freed slots are reused last-in first-out.
type slab[T any] struct {
	items []T
	used  []bool
	free  []uint32
}

// insert stores v and returns its slot.
func (s *slab[T]) insert(v T) uint32 {
	if n := len(s.free); n > 0 {
		i := s.free[n-1]
		s.free = s.free[:n-1]
		s.items[i] = v
		s.used[i] = true
		return i
	}
	s.items = append(s.items, v)
	s.used = append(s.used, true)
	return uint32(len(s.items) - 1)
}

// get returns the value at slot i.
func (s *slab[T]) get(i uint32) (T, bool) {
	if int(i) >= len(s.items) || !s.used[i] {
		var zero T
		return zero, false
	}
	return s.items[i], true
}

// remove frees slot i. It reports whether the slot was in use.
func (s *slab[T]) remove(i uint32) bool {
	if int(i) >= len(s.items) || !s.used[i] {
		return false
	}
	var zero T
	s.items[i] = zero
	s.used[i] = false
	s.free = append(s.free, i)
	return true
}

// len returns the number of used slots.
func (s *slab[T]) len() int {
	return len(s.items) - len(s.free)
}

// each calls fn for every used slot in index order.
func (s *slab[T]) each(fn func(i uint32, v T)) {
	for i, v := range s.items {
		if s.used[i] {
			fn(uint32(i), v)
		}
	}
}
