package pool

import "container/list"

// inUseSet is the insertion-ordered set of issued entities, oldest at the
// front. Append, removal by identity and access by either end are O(1);
// access by any other position walks from the nearer end.
type inUseSet[T comparable] struct {
	order *list.List
	index map[T]*list.Element
}

// slot boxes entities so that a nil interface value survives the trip
// through list.Element.Value.
type slot[T any] struct{ v T }

func newInUseSet[T comparable](capacity int) *inUseSet[T] {
	return &inUseSet[T]{
		order: list.New(),
		index: make(map[T]*list.Element, capacity),
	}
}

func (s *inUseSet[T]) Len() int {
	return len(s.index)
}

func (s *inUseSet[T]) Contains(entity T) bool {
	_, ok := s.index[entity]
	return ok
}

// Push appends entity as the newest issue. Pushing a member moves it to
// the back.
func (s *inUseSet[T]) Push(entity T) {
	if e, ok := s.index[entity]; ok {
		s.order.MoveToBack(e)
		return
	}
	s.index[entity] = s.order.PushBack(slot[T]{entity})
}

func (s *inUseSet[T]) Remove(entity T) bool {
	e, ok := s.index[entity]
	if !ok {
		return false
	}
	s.order.Remove(e)
	delete(s.index, entity)
	return true
}

// At returns the entity at position i, 0 being the oldest.
func (s *inUseSet[T]) At(i int) (T, bool) {
	var zero T
	n := s.order.Len()
	if i < 0 || i >= n {
		return zero, false
	}
	if i < n/2 {
		e := s.order.Front()
		for ; i > 0; i-- {
			e = e.Next()
		}
		return e.Value.(slot[T]).v, true
	}
	e := s.order.Back()
	for j := n - 1; j > i; j-- {
		e = e.Prev()
	}
	return e.Value.(slot[T]).v, true
}

// Snapshot returns the members oldest first.
func (s *inUseSet[T]) Snapshot() []T {
	out := make([]T, 0, s.order.Len())
	for e := s.order.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(slot[T]).v)
	}
	return out
}

func (s *inUseSet[T]) Clear() {
	s.order.Init()
	clear(s.index)
}
