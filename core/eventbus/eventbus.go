// Package eventbus carries session, window and wait events from sessions to
// observers such as the run journal. Delivery is asynchronous and in publish
// order; a full queue drops events rather than stall a session.
package eventbus

import (
	"slices"

	"multiwindow-go/core/event"
)

// EventBus is the interface for the event bus.
type EventBus interface {
	// Publish queues e for delivery. It never blocks; when the queue is full
	// the event is dropped and counted.
	Publish(e event.Event)

	// Subscribe registers handler for events accepted by every filter.
	// Returns a subscription ID that can be used to unsubscribe.
	Subscribe(handler EventHandler, filters ...Filter) string

	// Unsubscribe removes a subscription by its ID.
	Unsubscribe(subscriptionID string)

	// Dropped returns how many events were discarded because the queue was full.
	Dropped() uint64

	// Close delivers the queued events, then shuts the bus down.
	// After Close is called, Publish will be a no-op.
	Close()
}

// EventHandler is a function that handles an event.
// Handlers run on the dispatch goroutine and must not block on Publish.
type EventHandler func(e event.Event)

// Filter decides whether a subscription receives an event.
type Filter func(e event.Event) bool

// ForSession accepts only events published by the session with sessionID.
func ForSession(sessionID string) Filter {
	return func(e event.Event) bool {
		se, ok := e.(event.SessionEvent)
		return ok && se.SessionID() == sessionID
	}
}

// ForEvents accepts only events with one of the given names.
func ForEvents(names ...string) Filter {
	return func(e event.Event) bool {
		return slices.Contains(names, e.EventName())
	}
}
