package memoize

import (
	"context"
	"time"
)

// EventKind classifies the outcome of a memoized call.
type EventKind string

const (
	EventHit    EventKind = "hit"
	EventMiss   EventKind = "miss"
	EventBypass EventKind = "bypass"
	EventError  EventKind = "error"
)

// Event describes one memoized call after it completes. Bypassed calls
// derive no key: Key only carries the operation and arguments.
type Event struct {
	Kind      EventKind
	Table     string
	Operation string
	Level     Level
	Key       Key
	Duration  time.Duration
	Err       error
}

// Observer receives an event for every memoized call.
type Observer interface {
	OnMemoizedCall(ctx context.Context, event Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, event Event)

// OnMemoizedCall implements Observer.
func (f ObserverFunc) OnMemoizedCall(ctx context.Context, event Event) {
	if f == nil {
		return
	}
	f(ctx, event)
}
