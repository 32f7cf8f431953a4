package testsupport

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-memoizer/memoize"
)

// CountingOperation is a memoize.Operation that records how often it ran.
type CountingOperation struct {
	calls  atomic.Int64
	result func(call int, args []any) (any, error)
}

// NewCountingOperation returns an operation whose result is produced by
// result. A nil result makes the operation return the call number.
func NewCountingOperation(result func(call int, args []any) (any, error)) *CountingOperation {
	if result == nil {
		result = func(call int, _ []any) (any, error) {
			return call, nil
		}
	}
	return &CountingOperation{result: result}
}

// Op returns the operation to define on a table.
func (c *CountingOperation) Op() memoize.Operation {
	return func(_ context.Context, _ any, args ...any) (any, error) {
		call := int(c.calls.Add(1))
		return c.result(call, args)
	}
}

// Calls returns how many times the operation body ran.
func (c *CountingOperation) Calls() int {
	return int(c.calls.Load())
}

// EventRecorder is a memoize.Observer that keeps every event it receives.
type EventRecorder struct {
	mu     sync.Mutex
	events []memoize.Event
}

var _ memoize.Observer = (*EventRecorder)(nil)

// NewEventRecorder returns an empty recorder.
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

// OnMemoizedCall implements memoize.Observer.
func (r *EventRecorder) OnMemoizedCall(_ context.Context, event memoize.Event) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events in arrival order.
func (r *EventRecorder) Events() []memoize.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]memoize.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the kind of every recorded event in arrival order.
func (r *EventRecorder) Kinds() []memoize.EventKind {
	events := r.Events()
	kinds := make([]memoize.EventKind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	return kinds
}

// Count returns the number of recorded events of kind.
func (r *EventRecorder) Count(kind memoize.EventKind) int {
	n := 0
	for _, e := range r.Events() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Reset drops every recorded event.
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
