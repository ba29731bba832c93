package pool

import "fmt"

// Event identifies a lifecycle notification.
type Event int

const (
	// EventCreated fires once per entity built during setup.
	EventCreated Event = iota
	// EventRetrieved fires when an entity is handed to a caller.
	EventRetrieved
	// EventReturned fires when a caller hands an entity back.
	EventReturned
	// EventDestroyed fires once per entity disposed of during teardown.
	EventDestroyed
	// EventRecycled fires when an in-use entity is reclaimed, before the
	// EventRetrieved for the same retrieval.
	EventRecycled

	eventCount
)

// Events lists every lifecycle event.
var Events = []Event{EventCreated, EventRetrieved, EventReturned, EventDestroyed, EventRecycled}

// String returns the lowercase event name.
func (e Event) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventRetrieved:
		return "retrieved"
	case EventReturned:
		return "returned"
	case EventDestroyed:
		return "destroyed"
	case EventRecycled:
		return "recycled"
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

// Subscription identifies one registered callback. The zero value matches
// nothing.
type Subscription struct {
	id    uint64
	event Event
}

// Event returns the event the subscription listens to.
func (s Subscription) Event() Event {
	return s.event
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// observers is the registry behind the On* methods. Callbacks for one event
// run synchronously in registration order. A panicking callback propagates
// to the caller of the pool operation; the pool's bookkeeping has already
// been committed at that point.
type observers[T any] struct {
	next uint64
	subs [eventCount][]subscriber[T]
}

func (o *observers[T]) subscribe(event Event, fn func(T)) Subscription {
	if fn == nil || event < 0 || event >= eventCount {
		return Subscription{}
	}
	o.next++
	o.subs[event] = append(o.subs[event], subscriber[T]{id: o.next, fn: fn})
	return Subscription{id: o.next, event: event}
}

func (o *observers[T]) unsubscribe(s Subscription) bool {
	if s.id == 0 || s.event < 0 || s.event >= eventCount {
		return false
	}
	list := o.subs[s.event]
	for i, sub := range list {
		if sub.id != s.id {
			continue
		}
		// copy so a notify loop holding the old slice is unaffected
		next := make([]subscriber[T], 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		o.subs[s.event] = next
		return true
	}
	return false
}

func (o *observers[T]) notify(event Event, entity T) {
	for _, sub := range o.subs[event] {
		sub.fn(entity)
	}
}

func (o *observers[T]) count(event Event) int {
	if event < 0 || event >= eventCount {
		return 0
	}
	return len(o.subs[event])
}
