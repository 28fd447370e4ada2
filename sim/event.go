package sim

// VTimeInSec is virtual time in seconds. It only moves when the engine
// handles events and has no relation to the wall clock.
type VTimeInSec float64

// An Event is a piece of work scheduled for a virtual time.
type Event interface {
	Time() VTimeInSec
	Handler() Handler

	// IsSecondary events run after every primary event of the same time.
	IsSecondary() bool
}

// A Handler receives the events scheduled for it. An event only mutates the
// handler it was scheduled for.
type Handler interface {
	Handle(e Event) error
}

// EventBase holds the fields shared by all events. Embed it and fill it with
// MakeEventBase.
type EventBase struct {
	ID        string
	time      VTimeInSec
	handler   Handler
	secondary bool
}

// MakeEventBase returns an EventBase with a fresh ID.
func MakeEventBase(t VTimeInSec, handler Handler, secondary bool) EventBase {
	return EventBase{
		ID:        GetIDGenerator().Generate(),
		time:      t,
		handler:   handler,
		secondary: secondary,
	}
}

func (e EventBase) Time() VTimeInSec {
	return e.time
}

func (e EventBase) Handler() Handler {
	return e.handler
}

func (e EventBase) IsSecondary() bool {
	return e.secondary
}
