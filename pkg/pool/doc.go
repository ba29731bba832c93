// Package pool implements a fixed-capacity object pool that recycles a
// bounded set of expensive entities between "available" and "in-use".
//
// # Architecture
//
// Three pieces cooperate:
//
//   - Storage: holds available entities. StackStorage hands out the most
//     recently returned entity (LIFO); QueueStorage hands out the earliest
//     (FIFO) so wear is spread evenly.
//   - RecyclePolicy: consulted only when storage is empty. RecycleNone fails
//     with pool_exhausted, RecycleFIFO reclaims the oldest in-use entity and
//     RecycleLIFO the newest.
//   - Pool[T]: owns the create/destroy functions, the in-use sequence and the
//     lifecycle (uninitialized, initialized, torn down), and fires the
//     Created, Retrieved, Returned, Destroyed and Recycled notifications.
//
// # Usage
//
//	p, err := pool.New(
//	    func() (*Actor, error) { return NewActor(), nil },
//	    func(a *Actor) { a.Dispose() },
//	    pool.WithCapacity(16),
//	    pool.WithRecycle(pool.RecycleFIFO),
//	)
//	if err != nil {
//	    return err
//	}
//	defer p.Teardown()
//
//	p.OnRetrieved(func(a *Actor) { a.Active = true })
//	p.OnReturned(func(a *Actor) { a.Active = false })
//
//	actor, err := p.Retrieve() // first call runs Setup
//	if err != nil {
//	    return err
//	}
//	defer p.Return(actor)
//
// # Lifecycle
//
// Setup creates exactly Capacity entities once; further calls are no-ops.
// Retrieve runs Setup lazily. Teardown destroys every entity, in use or not,
// and is terminal: any later operation fails with invalid_state.
//
// Returning an entity that is not in use, because it was never issued or
// has already been returned, fails with untracked_return rather than
// putting a duplicate into storage.
//
// # Notifications
//
// Callbacks run synchronously, in registration order, after the pool has
// committed the state change they describe. They are listeners only and
// must not mutate the pool.
//
// # Concurrency
//
// Pool has no internal locking. Synchronized wraps a Pool with one mutex
// held across each operation and implements the same ObjectPool interface.
package pool
