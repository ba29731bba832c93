package pool

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	rerrors "github.com/ajitpratap0/reservoir/pkg/errors"
)

// State is a pool's position in its lifecycle.
type State int

const (
	// StateUninitialized is the state before Setup has run.
	StateUninitialized State = iota
	// StateInitialized is the working state; Retrieve and Return are allowed.
	StateInitialized
	// StateTornDown is terminal. Every operation fails with invalid_state.
	StateTornDown
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateTornDown:
		return "torn_down"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ObjectPool is the contract shared by Pool and Synchronized. Hosts should
// depend on it rather than on either concrete type.
type ObjectPool[T comparable] interface {
	Name() string
	Capacity() int
	Count() int
	InUse() int
	State() State
	Stats() Stats

	Setup() error
	Teardown() error
	Retrieve() (T, error)
	Return(entity T) error

	OnCreated(fn func(T)) Subscription
	OnRetrieved(fn func(T)) Subscription
	OnReturned(fn func(T)) Subscription
	OnDestroyed(fn func(T)) Subscription
	OnRecycled(fn func(T)) Subscription
	Unsubscribe(s Subscription) bool
}

// Pool recycles a fixed set of entities between available and in-use.
//
// Entities are created in one pass by Setup, which Retrieve runs lazily on
// first use. When storage is empty the configured RecyclePolicy may reclaim
// an in-use entity; it is handed out again as-is, without passing through
// storage or being rebuilt.
//
// Entities are tracked by identity (==), so pointer types are the natural
// fit. A Pool is not safe for concurrent use; wrap it with NewSynchronized
// when several goroutines share it.
type Pool[T comparable] struct {
	name     string
	capacity int
	recycle  RecyclePolicy
	kind     StorageKind

	create  func() (T, error)
	destroy func(T)

	storage   Storage[T]
	available map[T]struct{}
	inUse     *inUseSet[T]
	state     State

	events observers[T]
	logger *zap.Logger

	stats struct {
		created   int64
		destroyed int64
		retrieved int64
		returned  int64
		recycled  int64
		exhausted int64
	}
}

// New creates an uninitialized pool. create builds one entity; destroy
// disposes of one and may be nil when entities need no cleanup.
//
// Example:
//
//	p, err := pool.New(
//	    func() (*Bullet, error) { return &Bullet{}, nil },
//	    func(b *Bullet) { b.Release() },
//	    pool.WithCapacity(64),
//	    pool.WithStorage(pool.StorageQueue),
//	    pool.WithRecycle(pool.RecycleFIFO),
//	)
func New[T comparable](create func() (T, error), destroy func(T), opts ...Option) (*Pool[T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if create == nil {
		return nil, rerrors.New(rerrors.ErrorTypeValidation, "create function is required").
			WithDetail("pool", o.name)
	}
	if o.capacity <= 0 {
		return nil, rerrors.Newf(rerrors.ErrorTypeValidation, "capacity must be positive, got %d", o.capacity).
			WithDetail("pool", o.name)
	}
	if destroy == nil {
		destroy = func(T) {}
	}

	storage, err := NewStorage[T](o.storage, o.capacity)
	if err != nil {
		return nil, err
	}

	return &Pool[T]{
		name:      o.name,
		capacity:  o.capacity,
		recycle:   o.recycle,
		kind:      o.storage,
		create:    create,
		destroy:   destroy,
		storage:   storage,
		available: make(map[T]struct{}, o.capacity),
		inUse:     newInUseSet[T](o.capacity),
		logger:    o.logger.With(zap.String("pool", o.name)),
	}, nil
}

// Name returns the pool's label.
func (p *Pool[T]) Name() string { return p.name }

// Capacity returns the number of entities Setup creates.
func (p *Pool[T]) Capacity() int { return p.capacity }

// Count returns the number of available entities.
func (p *Pool[T]) Count() int { return p.storage.Count() }

// InUse returns the number of entities currently issued.
func (p *Pool[T]) InUse() int { return p.inUse.Len() }

// State returns the lifecycle state.
func (p *Pool[T]) State() State { return p.state }

// RecyclePolicy returns the policy applied on exhaustion.
func (p *Pool[T]) RecyclePolicy() RecyclePolicy { return p.recycle }

// StorageKind returns the storage strategy in use.
func (p *Pool[T]) StorageKind() StorageKind { return p.kind }

// InUseEntities returns the issued entities, oldest first.
func (p *Pool[T]) InUseEntities() []T { return p.inUse.Snapshot() }

// Setup creates capacity entities and makes them available, firing
// EventCreated for each in creation order. It is a no-op once the pool is
// initialized.
//
// Setup is atomic: if create fails or panics, or hands back an entity that
// is a duplicate or cannot be compared, the entities built so far are
// destroyed (without EventDestroyed, since no EventCreated was fired for
// them) and the pool stays uninitialized.
func (p *Pool[T]) Setup() error {
	switch p.state {
	case StateInitialized:
		return nil
	case StateTornDown:
		return p.stateError("setup")
	}

	created := make([]T, 0, p.capacity)
	done := false
	defer func() {
		if !done {
			p.discard(created)
		}
	}()

	seen := make(map[T]struct{}, p.capacity)
	for i := 0; i < p.capacity; i++ {
		entity, err := p.create()
		if err != nil {
			return rerrors.Wrap(err, rerrors.ErrorTypeFactory, "create entity failed").
				WithDetail("pool", p.name).
				WithDetail("index", i)
		}
		if !isComparable(entity) {
			// never tracked, so it is disposed of here rather than in the batch
			p.destroy(entity)
			return rerrors.Newf(rerrors.ErrorTypeValidation, "create returned an entity of uncomparable type %T", entity).
				WithDetail("pool", p.name).
				WithDetail("index", i)
		}
		if _, dup := seen[entity]; dup {
			return rerrors.New(rerrors.ErrorTypeValidation, "create returned an entity it had already produced").
				WithDetail("pool", p.name).
				WithDetail("index", i)
		}
		seen[entity] = struct{}{}
		created = append(created, entity)
	}
	done = true

	for _, entity := range created {
		p.storage.Return(entity)
		p.available[entity] = struct{}{}
	}
	p.state = StateInitialized
	p.stats.created += int64(len(created))

	p.logger.Debug("pool initialized",
		zap.Int("capacity", p.capacity),
		zap.Stringer("storage", p.kind),
		zap.Stringer("recycle", p.recycle),
	)

	for _, entity := range created {
		p.events.notify(EventCreated, entity)
	}
	return nil
}

// Teardown destroys every entity the pool owns, the available ones in
// storage order followed by the in-use ones oldest first, firing
// EventDestroyed after each. The pool is unusable afterwards.
func (p *Pool[T]) Teardown() error {
	if p.state != StateInitialized {
		return p.stateError("teardown")
	}

	doomed := make([]T, 0, p.capacity)
	for p.storage.Count() > 0 {
		entity, err := p.storage.Retrieve()
		if err != nil {
			break
		}
		doomed = append(doomed, entity)
	}
	inUse := p.inUse.Len()
	doomed = append(doomed, p.inUse.Snapshot()...)

	p.storage.Clear()
	p.inUse.Clear()
	clear(p.available)
	p.state = StateTornDown

	p.logger.Debug("pool torn down",
		zap.Int("destroyed", len(doomed)),
		zap.Int("in_use", inUse),
	)

	for _, entity := range doomed {
		p.destroy(entity)
		p.stats.destroyed++
		p.events.notify(EventDestroyed, entity)
	}
	return nil
}

// Retrieve hands out an available entity, running Setup first if needed.
// When storage is empty the recycle policy picks an in-use entity to
// reclaim; EventRecycled then fires before EventRetrieved. With nothing to
// reclaim Retrieve fails with pool_exhausted.
func (p *Pool[T]) Retrieve() (T, error) {
	var zero T

	switch p.state {
	case StateUninitialized:
		if err := p.Setup(); err != nil {
			return zero, err
		}
	case StateTornDown:
		return zero, p.stateError("retrieve")
	}

	var (
		entity   T
		recycled bool
	)
	if p.storage.Count() > 0 {
		e, err := p.storage.Retrieve()
		if err != nil {
			return zero, rerrors.Wrap(err, rerrors.ErrorTypeInternal, "storage retrieve failed").
				WithDetail("pool", p.name)
		}
		entity = e
		delete(p.available, entity)
	} else {
		i, ok := p.recycle.victim(p.inUse.Len())
		if !ok {
			p.stats.exhausted++
			p.logger.Warn("pool exhausted",
				zap.Int("capacity", p.capacity),
				zap.Int("in_use", p.inUse.Len()),
				zap.Stringer("recycle", p.recycle),
			)
			return zero, rerrors.New(rerrors.ErrorTypePoolExhausted, "no entity available").
				WithDetail("pool", p.name).
				WithDetail("capacity", p.capacity).
				WithDetail("recycle", p.recycle.String())
		}
		entity, _ = p.inUse.At(i)
		recycled = true
		p.stats.recycled++
	}

	// a reclaimed entity moves to the back: it is now the newest issue
	p.inUse.Push(entity)
	p.stats.retrieved++

	if recycled {
		p.events.notify(EventRecycled, entity)
	}
	p.events.notify(EventRetrieved, entity)
	return entity, nil
}

// Return hands an issued entity back. Entities that are not in use, because
// they were never issued by this pool or have already been returned, are
// rejected with untracked_return and storage is left untouched.
func (p *Pool[T]) Return(entity T) error {
	if p.state != StateInitialized {
		return p.stateError("return")
	}
	if !isComparable(entity) {
		return rerrors.Newf(rerrors.ErrorTypeUntrackedReturn, "entity of uncomparable type %T was not issued by this pool", entity).
			WithDetail("pool", p.name)
	}

	if !p.inUse.Remove(entity) {
		reason := "entity was not issued by this pool"
		if _, ok := p.available[entity]; ok {
			reason = "entity is already available"
		}
		return rerrors.New(rerrors.ErrorTypeUntrackedReturn, reason).
			WithDetail("pool", p.name)
	}

	p.storage.Return(entity)
	p.available[entity] = struct{}{}
	p.stats.returned++

	p.events.notify(EventReturned, entity)
	return nil
}

// OnCreated registers fn for EventCreated.
func (p *Pool[T]) OnCreated(fn func(T)) Subscription {
	return p.events.subscribe(EventCreated, fn)
}

// OnRetrieved registers fn for EventRetrieved.
func (p *Pool[T]) OnRetrieved(fn func(T)) Subscription {
	return p.events.subscribe(EventRetrieved, fn)
}

// OnReturned registers fn for EventReturned.
func (p *Pool[T]) OnReturned(fn func(T)) Subscription {
	return p.events.subscribe(EventReturned, fn)
}

// OnDestroyed registers fn for EventDestroyed.
func (p *Pool[T]) OnDestroyed(fn func(T)) Subscription {
	return p.events.subscribe(EventDestroyed, fn)
}

// OnRecycled registers fn for EventRecycled.
func (p *Pool[T]) OnRecycled(fn func(T)) Subscription {
	return p.events.subscribe(EventRecycled, fn)
}

// Unsubscribe removes a callback registered through one of the On methods.
// It reports whether the subscription was still registered.
func (p *Pool[T]) Unsubscribe(s Subscription) bool {
	return p.events.unsubscribe(s)
}

// Subscribers returns the number of callbacks registered for event.
func (p *Pool[T]) Subscribers(event Event) int {
	return p.events.count(event)
}

// isComparable reports whether entity can be used as a map key. Interface
// type arguments satisfy comparable yet may hold slices, maps or funcs.
func isComparable[T comparable](entity T) bool {
	v := reflect.ValueOf(any(entity))
	return !v.IsValid() || v.Comparable()
}

func (p *Pool[T]) discard(entities []T) {
	for _, entity := range entities {
		p.destroy(entity)
	}
}

func (p *Pool[T]) stateError(op string) error {
	return rerrors.Newf(rerrors.ErrorTypeInvalidState, "%s not allowed while pool is %s", op, p.state).
		WithDetail("pool", p.name).
		WithDetail("state", p.state.String())
}
