package pool

import (
	"fmt"
	"strings"

	"github.com/eapache/queue"

	rerrors "github.com/ajitpratap0/reservoir/pkg/errors"
)

// Storage holds the entities that are currently available. Implementations
// never validate what they are given and never destroy what they drop; both
// are the engine's job.
type Storage[T any] interface {
	// Count returns the number of available entities.
	Count() int
	// Retrieve removes and returns the next entity, or an empty_storage error.
	Retrieve() (T, error)
	// Return adds an entity back.
	Return(entity T)
	// Clear drops every held entity without destroying it.
	Clear()
}

// StorageKind selects one of the two storage strategies.
type StorageKind int

const (
	// StorageStack hands out the most recently returned entity first (LIFO).
	StorageStack StorageKind = iota
	// StorageQueue hands out the earliest returned entity first (FIFO).
	StorageQueue
)

// String returns the configuration name of the kind.
func (k StorageKind) String() string {
	switch k {
	case StorageStack:
		return "stack"
	case StorageQueue:
		return "queue"
	}
	return fmt.Sprintf("StorageKind(%d)", int(k))
}

// ParseStorageKind maps "stack" or "queue" (case-insensitive) to a kind.
// An empty string selects the default stack storage.
func ParseStorageKind(s string) (StorageKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stack", "lifo":
		return StorageStack, nil
	case "queue", "fifo":
		return StorageQueue, nil
	}
	return StorageStack, rerrors.Newf(rerrors.ErrorTypeConfig, "unknown storage strategy %q", s).
		WithDetail("allowed", []string{"stack", "queue"})
}

// NewStorage builds the storage strategy for kind, sized for capacity entities.
func NewStorage[T any](kind StorageKind, capacity int) (Storage[T], error) {
	switch kind {
	case StorageStack:
		return NewStackStorage[T](capacity), nil
	case StorageQueue:
		return NewQueueStorage[T](), nil
	}
	return nil, rerrors.Newf(rerrors.ErrorTypeConfig, "unknown storage strategy %v", kind)
}

// StackStorage is a last-in-first-out Storage. Reusing the freshest entity
// keeps the working set small and warm.
type StackStorage[T any] struct {
	items []T
}

// NewStackStorage creates an empty stack with room for capacity entities.
func NewStackStorage[T any](capacity int) *StackStorage[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &StackStorage[T]{items: make([]T, 0, capacity)}
}

// Count returns the number of entities on the stack.
func (s *StackStorage[T]) Count() int {
	return len(s.items)
}

// Retrieve pops the most recently returned entity.
func (s *StackStorage[T]) Retrieve() (T, error) {
	var zero T
	n := len(s.items)
	if n == 0 {
		return zero, rerrors.New(rerrors.ErrorTypeEmptyStorage, "stack is empty")
	}
	entity := s.items[n-1]
	s.items[n-1] = zero // drop the reference held by the backing array
	s.items = s.items[:n-1]
	return entity, nil
}

// Return pushes entity on top of the stack.
func (s *StackStorage[T]) Return(entity T) {
	s.items = append(s.items, entity)
}

// Clear empties the stack, keeping the backing array.
func (s *StackStorage[T]) Clear() {
	clear(s.items)
	s.items = s.items[:0]
}

// QueueStorage is a first-in-first-out Storage backed by a ring buffer.
// Cycling through every entity spreads wear evenly.
type QueueStorage[T any] struct {
	q *queue.Queue
}

// NewQueueStorage creates an empty queue.
func NewQueueStorage[T any]() *QueueStorage[T] {
	return &QueueStorage[T]{q: queue.New()}
}

// Count returns the number of queued entities.
func (s *QueueStorage[T]) Count() int {
	return s.q.Length()
}

// Retrieve dequeues the earliest returned entity.
func (s *QueueStorage[T]) Retrieve() (T, error) {
	var zero T
	if s.q.Length() == 0 {
		return zero, rerrors.New(rerrors.ErrorTypeEmptyStorage, "queue is empty")
	}
	v := s.q.Remove()
	if v == nil {
		// only reachable when T is an interface type holding nil
		return zero, nil
	}
	entity, ok := v.(T)
	if !ok {
		return zero, rerrors.New(rerrors.ErrorTypeInternal, "queue held a foreign value")
	}
	return entity, nil
}

// Return enqueues entity at the back.
func (s *QueueStorage[T]) Return(entity T) {
	s.q.Add(entity)
}

// Clear drops every queued entity.
func (s *QueueStorage[T]) Clear() {
	s.q = queue.New()
}
