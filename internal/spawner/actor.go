package spawner

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Vector is a position in the plane.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Actor is the pooled entity a Spawner places in the world. Active is
// toggled by pool notifications: true while issued, false while available.
type Actor struct {
	ID        int64     `json:"id"`
	Active    bool      `json:"active"`
	Position  Vector    `json:"position"`
	Point     string    `json:"point"`
	SpawnedAt time.Time `json:"spawned_at"`
	Spawns    int       `json:"spawns"`
	disposed  bool
}

// String returns "actor-<id>".
func (a *Actor) String() string {
	return fmt.Sprintf("actor-%d", a.ID)
}

// Disposed reports whether the actor's pool has destroyed it.
func (a *Actor) Disposed() bool {
	return a.disposed
}

// ActorFactory numbers the actors it builds. Its Create and Destroy methods
// are the pool's create and destroy functions.
type ActorFactory struct {
	next      atomic.Int64
	destroyed atomic.Int64
}

// Create builds an inactive actor with the next id.
func (f *ActorFactory) Create() (*Actor, error) {
	return &Actor{ID: f.next.Add(1)}, nil
}

// Destroy marks a as disposed.
func (f *ActorFactory) Destroy(a *Actor) {
	a.Active = false
	a.disposed = true
	f.destroyed.Add(1)
}

// Built returns the number of actors created so far.
func (f *ActorFactory) Built() int64 {
	return f.next.Load()
}

// Destroyed returns the number of actors disposed of so far.
func (f *ActorFactory) Destroyed() int64 {
	return f.destroyed.Load()
}
