package sim

// An Event is something going to happen in the future.
type Event interface {
	// Time returns the time that the event should happen.
	Time() VTime

	// Handler returns the handler that should handle the event.
	Handler() Handler

	// Cancelled tells if the event has been cancelled. Cancelled events
	// stay in the event queue and are skipped when they are popped.
	Cancelled() bool
}

// EventBase provides the basic fields and getters for other events.
type EventBase struct {
	ID        string
	time      VTime
	handler   Handler
	cancelled bool
}

// NewEventBase creates a new EventBase.
func NewEventBase(t VTime, handler Handler) *EventBase {
	e := new(EventBase)
	e.ID = GetIDGenerator().Generate()
	e.time = t
	e.handler = handler
	return e
}

// Time returns the time that the event is going to happen.
func (e *EventBase) Time() VTime {
	return e.time
}

// SetHandler sets which handler handles the event.
func (e *EventBase) SetHandler(h Handler) {
	e.handler = h
}

// Handler returns the handler to handle the event.
func (e *EventBase) Handler() Handler {
	return e.handler
}

// Cancel marks the event as cancelled. The event queue drops it lazily.
func (e *EventBase) Cancel() {
	e.cancelled = true
}

// Cancelled returns true if the event has been cancelled.
func (e *EventBase) Cancelled() bool {
	return e.cancelled
}

// A Handler defines a domain for the events.
//
// One event is always constrained to one Handler, which means the event can
// only be scheduled by one handler and can only directly modify that handler.
type Handler interface {
	Handle(e Event) error
}
