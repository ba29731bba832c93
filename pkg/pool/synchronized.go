package pool

import "sync"

// Synchronized guards a Pool with a single mutex held across each whole
// operation, so the in-use ordering that recycling depends on is updated
// atomically with respect to Retrieve and Return.
//
// Callbacks run while the lock is held and must not call back into the
// pool.
type Synchronized[T comparable] struct {
	mu sync.Mutex
	p  *Pool[T]
}

var _ ObjectPool[int] = (*Synchronized[int])(nil)
var _ ObjectPool[int] = (*Pool[int])(nil)

// NewSynchronized wraps p. The caller must stop using p directly.
func NewSynchronized[T comparable](p *Pool[T]) *Synchronized[T] {
	return &Synchronized[T]{p: p}
}

// NewConcurrent builds a Pool with New and wraps it.
func NewConcurrent[T comparable](create func() (T, error), destroy func(T), opts ...Option) (*Synchronized[T], error) {
	p, err := New(create, destroy, opts...)
	if err != nil {
		return nil, err
	}
	return NewSynchronized(p), nil
}

// Name returns the pool's label.
func (s *Synchronized[T]) Name() string {
	return s.p.Name()
}

// Capacity returns the number of entities Setup creates.
func (s *Synchronized[T]) Capacity() int {
	return s.p.Capacity()
}

// Count returns the number of available entities.
func (s *Synchronized[T]) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Count()
}

// InUse returns the number of entities currently issued.
func (s *Synchronized[T]) InUse() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.InUse()
}

// State returns the lifecycle state.
func (s *Synchronized[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.State()
}

// Stats returns the pool's current counters.
func (s *Synchronized[T]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Stats()
}

// Setup runs Pool.Setup under the lock.
func (s *Synchronized[T]) Setup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Setup()
}

// Teardown runs Pool.Teardown under the lock.
func (s *Synchronized[T]) Teardown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Teardown()
}

// Retrieve runs Pool.Retrieve under the lock.
func (s *Synchronized[T]) Retrieve() (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Retrieve()
}

// Return runs Pool.Return under the lock.
func (s *Synchronized[T]) Return(entity T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Return(entity)
}

// OnCreated registers fn for EventCreated.
func (s *Synchronized[T]) OnCreated(fn func(T)) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.OnCreated(fn)
}

// OnRetrieved registers fn for EventRetrieved.
func (s *Synchronized[T]) OnRetrieved(fn func(T)) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.OnRetrieved(fn)
}

// OnReturned registers fn for EventReturned.
func (s *Synchronized[T]) OnReturned(fn func(T)) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.OnReturned(fn)
}

// OnDestroyed registers fn for EventDestroyed.
func (s *Synchronized[T]) OnDestroyed(fn func(T)) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.OnDestroyed(fn)
}

// OnRecycled registers fn for EventRecycled.
func (s *Synchronized[T]) OnRecycled(fn func(T)) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.OnRecycled(fn)
}

// Unsubscribe removes a registered callback.
func (s *Synchronized[T]) Unsubscribe(sub Subscription) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Unsubscribe(sub)
}
