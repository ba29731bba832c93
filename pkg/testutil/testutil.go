// Package testutil provides testing utilities for reservoir
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// AssertEventually asserts that a condition becomes true within the specified timeout.
// It checks the condition every 10ms until it succeeds or the timeout expires.
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

// Entry is one notification seen by a Recorder.
type Entry[T any] struct {
	Event  string
	Entity T
}

// String renders the entry as "event:entity".
func (e Entry[T]) String() string {
	return fmt.Sprintf("%s:%v", e.Event, e.Entity)
}

// Recorder captures lifecycle callbacks in the order they fire. It is safe
// for concurrent use.
type Recorder[T any] struct {
	mu      sync.Mutex
	entries []Entry[T]
}

// NewRecorder creates an empty recorder.
func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{}
}

// Hook returns a callback that records event with the entity it receives.
func (r *Recorder[T]) Hook(event string) func(T) {
	return func(entity T) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.entries = append(r.entries, Entry[T]{Event: event, Entity: entity})
	}
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder[T]) Entries() []Entry[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry[T], len(r.entries))
	copy(out, r.entries)
	return out
}

// Strings returns the recorded entries rendered with Entry.String.
func (r *Recorder[T]) Strings() []string {
	entries := r.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.String()
	}
	return out
}

// Entities returns, in order, the entities recorded for event.
func (r *Recorder[T]) Entities(event string) []T {
	var out []T
	for _, e := range r.Entries() {
		if e.Event == event {
			out = append(out, e.Entity)
		}
	}
	return out
}

// Count returns the number of entries recorded for event.
func (r *Recorder[T]) Count(event string) int {
	return len(r.Entities(event))
}

// Reset forgets everything recorded so far.
func (r *Recorder[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}
