// Package pubsub provides the named-event publish/subscribe primitive that
// stores use to broadcast their deltas.
//
// Emission is synchronous: Emit invokes every handler registered for the event
// at the time of the call, in registration order, before returning. Handlers
// registered or removed during an emission take effect from the next Emit.
package pubsub

import (
	"fmt"
	"sync"
)

// ID identifies a registered handler. Go funcs are not comparable, so Off
// takes the ID returned by On rather than the handler itself.
type ID uint64

// Handler receives an event payload. A non-nil error aborts the emission.
type Handler[P any] func(payload P) error

type listener[P any] struct {
	id ID
	fn Handler[P]
}

// Emitter is a typed event bus keyed by event name.
//
// Thread-safety: registration is guarded by a mutex so On/Off may be called
// from any goroutine, but handlers run on the goroutine that calls Emit.
type Emitter[P any] struct {
	mu        sync.Mutex
	nextID    ID
	listeners map[string][]listener[P]
}

// New creates an empty emitter.
func New[P any]() *Emitter[P] {
	return &Emitter[P]{listeners: make(map[string][]listener[P])}
}

// On registers fn for event and returns its ID.
func (e *Emitter[P]) On(event string, fn Handler[P]) ID {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.listeners[event] = append(e.listeners[event], listener[P]{id: id, fn: fn})
	return id
}

// Off removes the handler with the given ID. Unknown IDs are ignored.
func (e *Emitter[P]) Off(event string, id ID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ls := e.listeners[event]
	for i, l := range ls {
		if l.id != id {
			continue
		}
		// Copy instead of splicing in place: an in-flight Emit may still be
		// iterating over the old backing array.
		next := make([]listener[P], 0, len(ls)-1)
		next = append(next, ls[:i]...)
		next = append(next, ls[i+1:]...)
		if len(next) == 0 {
			delete(e.listeners, event)
		} else {
			e.listeners[event] = next
		}
		return
	}
}

// Emit calls every handler registered for event, in registration order.
// It stops at the first handler error and returns it.
func (e *Emitter[P]) Emit(event string, payload P) error {
	e.mu.Lock()
	ls := e.listeners[event]
	e.mu.Unlock()

	for _, l := range ls {
		if err := l.fn(payload); err != nil {
			return fmt.Errorf("%s handler %d: %w", event, l.id, err)
		}
	}
	return nil
}

// Count returns the number of handlers registered for event.
func (e *Emitter[P]) Count(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[event])
}
