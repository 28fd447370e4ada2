package sim

import "log"

// TimerEvent is the event a Timer schedules for itself. It carries the
// generation of the timer at scheduling time so that firings queued before a
// Stop can be recognized and dropped.
type TimerEvent struct {
	EventBase

	generation uint64
}

func makeTimerEvent(
	handler Handler,
	time VTimeInSec,
	generation uint64,
	secondary bool,
) TimerEvent {
	return TimerEvent{
		EventBase:  MakeEventBase(time, handler, secondary),
		generation: generation,
	}
}

// A TimerHandler is notified every time a Timer fires.
type TimerHandler interface {
	OnTimer(t *Timer, now VTimeInSec)
}

// A Timer fires its handler at a fixed cadence, or once, in virtual time.
//
// Stopping a timer takes effect immediately: a firing that is already in the
// engine queue is dropped when it comes out. Restarting re-anchors the
// cadence at the current time.
type Timer struct {
	name       string
	engine     EventScheduler
	interval   VTimeInSec
	singleShot bool
	secondary  bool
	handler    TimerHandler

	active     bool
	generation uint64
	startTime  VTimeInSec
	fired      uint64
}

// NewTimer creates a periodic timer that fires at the given frequency.
func NewTimer(
	name string,
	engine EventScheduler,
	freq Freq,
	handler TimerHandler,
) *Timer {
	NameMustBeValid(name)

	return &Timer{
		name:     name,
		engine:   engine,
		interval: freq.Period(),
		handler:  handler,
	}
}

// NewSingleShotTimer creates a timer that fires once, delay after it is
// started.
func NewSingleShotTimer(
	name string,
	engine EventScheduler,
	delay VTimeInSec,
	handler TimerHandler,
) *Timer {
	if delay <= 0 {
		log.Panicf("timer %s: delay must be positive", name)
	}

	t := NewTimer(name, engine, Freq(1/delay), handler)
	t.interval = delay
	t.singleShot = true

	return t
}

// AsSecondary makes the timer schedule secondary events, which fire after all
// primary events of the same time.
func (t *Timer) AsSecondary() *Timer {
	t.secondary = true
	return t
}

// Name returns the name of the timer.
func (t *Timer) Name() string {
	return t.name
}

// Interval returns the time between two firings.
func (t *Timer) Interval() VTimeInSec {
	return t.interval
}

// IsActive returns true if the timer is started and has not been stopped or,
// for a single-shot timer, fired.
func (t *Timer) IsActive() bool {
	return t.active
}

// Fired returns the number of times the timer fired since the last Start.
func (t *Timer) Fired() uint64 {
	return t.fired
}

// Start schedules the first firing one interval from now. A timer that is
// already running is restarted.
func (t *Timer) Start() {
	t.Stop()

	t.active = true
	t.fired = 0
	t.startTime = t.engine.CurrentTime()
	t.scheduleNext()
}

// Stop cancels the timer. It is safe to call on a stopped timer.
func (t *Timer) Stop() {
	if !t.active {
		return
	}

	t.active = false
	t.generation++
}

func (t *Timer) scheduleNext() {
	time := t.startTime + VTimeInSec(t.fired+1)*t.interval
	evt := makeTimerEvent(t, time, t.generation, t.secondary)
	t.engine.Schedule(evt)
}

// Handle fires the timer if the event is still current.
func (t *Timer) Handle(e Event) error {
	evt, ok := e.(TimerEvent)
	if !ok {
		return nil
	}

	if !t.active || evt.generation != t.generation {
		return nil
	}

	t.fired++
	if t.singleShot {
		t.active = false
	} else {
		t.scheduleNext()
	}

	t.handler.OnTimer(t, evt.Time())

	return nil
}
