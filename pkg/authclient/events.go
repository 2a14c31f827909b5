package authclient

import (
	"log/slog"
	"sync"
)

// EventKind identifies the lifecycle event being dispatched.
type EventKind string

const (
	// EventAuthStateChanged fires after login, MFA completion, and any
	// other transition between anonymous and authenticated.
	EventAuthStateChanged EventKind = "auth_state_changed"

	// EventTokenRefreshed fires after a successful refresh rotation.
	EventTokenRefreshed EventKind = "token_refreshed"

	// EventLogout fires on explicit logout and on the implicit logout a
	// failed refresh triggers.
	EventLogout EventKind = "logout"

	// EventError fires when an operation fails with an AuthError.
	EventError EventKind = "error"
)

// Event is the payload delivered to subscribers.
type Event struct {
	Kind EventKind

	// Profile is the current identity, when one exists.
	Profile *Profile

	// Err carries the failure for EventError dispatches.
	Err error
}

// Subscriber receives events. Called synchronously on the goroutine that
// triggered the event; long-running work belongs on a separate goroutine.
type Subscriber func(Event)

// Dispatcher fans events out to all current subscribers synchronously.
// A panicking subscriber is recovered and logged so it never prevents the
// remaining subscribers from being notified.
type Dispatcher struct {
	mu   sync.RWMutex
	next int
	subs map[int]Subscriber
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make(map[int]Subscriber)}
}

// Subscribe registers fn and returns its cancel func. Cancelling twice is
// harmless.
func (d *Dispatcher) Subscribe(fn Subscriber) (cancel func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.next
	d.next++
	d.subs[id] = fn

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subs, id)
	}
}

// Emit delivers the event to every subscriber registered at call time.
// Subscribers added or removed during delivery take effect on the next
// emit.
func (d *Dispatcher) Emit(ev Event) {
	d.mu.RLock()
	subs := make([]Subscriber, 0, len(d.subs))
	for _, fn := range d.subs {
		subs = append(subs, fn)
	}
	d.mu.RUnlock()

	for _, fn := range subs {
		d.notify(fn, ev)
	}
}

func (d *Dispatcher) notify(fn Subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("authclient: event subscriber panicked",
				"event", string(ev.Kind),
				"panic", r,
			)
		}
	}()
	fn(ev)
}
