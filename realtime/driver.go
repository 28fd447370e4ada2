// Package realtime drives a virtual-time engine from the wall clock.
//
// A Driver owns the goroutine that advances the engine. Everything that
// touches simulation state from outside, such as HTTP handlers, must go
// through Do so that it runs on that goroutine between two steps.
package realtime

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/neurotrack/neurotrack/sim"
)

// ErrStopped is returned by Do when the driver is not running anymore.
var ErrStopped = errors.New("driver stopped")

// Engine is the part of a simulation engine that a Driver needs.
type Engine interface {
	sim.TimeTeller
	RunUntil(t sim.VTimeInSec) error
}

type request struct {
	fn   func()
	done chan struct{}
}

// A Driver advances an engine so that virtual time follows the wall clock.
type Driver struct {
	engine   Engine
	period   time.Duration
	now      func() time.Time
	requests chan request
	stopped  chan struct{}

	anchorWall time.Time
	anchorVirt sim.VTimeInSec
	anchored   bool
	paused     bool
}

// NewDriver creates a driver that catches the engine up with the wall clock
// every period.
func NewDriver(engine Engine, period time.Duration) *Driver {
	if period <= 0 {
		log.Panicf("driver period must be positive, got %s", period)
	}

	return &Driver{
		engine:   engine,
		period:   period,
		now:      time.Now,
		requests: make(chan request, 64),
		stopped:  make(chan struct{}),
	}
}

// WithClock replaces the wall clock.
func (d *Driver) WithClock(now func() time.Time) *Driver {
	d.now = now
	return d
}

// Run pumps the engine until the context is canceled. Pending requests are
// dropped when Run returns.
func (d *Driver) Run(ctx context.Context) error {
	defer close(d.stopped)

	ticker := time.NewTicker(d.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-d.requests:
			if err := d.Step(d.now()); err != nil {
				return err
			}

			req.fn()
			close(req.done)
		case <-ticker.C:
			if err := d.Step(d.now()); err != nil {
				return err
			}
		}
	}
}

// Step moves the engine to the virtual time that corresponds to wall. The
// first step anchors virtual time to the wall clock. Steps never go back in
// time, and do nothing while the driver is paused.
func (d *Driver) Step(wall time.Time) error {
	if d.paused {
		return nil
	}

	if !d.anchored {
		d.anchorWall = wall
		d.anchorVirt = d.engine.CurrentTime()
		d.anchored = true

		return nil
	}

	target := d.anchorVirt + sim.VTime(wall.Sub(d.anchorWall))
	if target <= d.engine.CurrentTime() {
		return nil
	}

	return d.engine.RunUntil(target)
}

// Do runs fn on the driver goroutine, after the engine has caught up with
// the wall clock, and waits for it to finish.
func (d *Driver) Do(ctx context.Context, fn func()) error {
	req := request{fn: fn, done: make(chan struct{})}

	select {
	case d.requests <- req:
	case <-d.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-d.stopped:
		select {
		case <-req.done:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pause freezes virtual time. Functions passed to Do still run, at the
// frozen time.
func (d *Driver) Pause(ctx context.Context) error {
	return d.Do(ctx, func() { d.paused = true })
}

// Continue lets virtual time follow the wall clock again, from the time it
// was frozen at. The paused wall time is skipped.
func (d *Driver) Continue(ctx context.Context) error {
	return d.Do(ctx, func() {
		if !d.paused {
			return
		}

		d.paused = false
		d.anchorWall = d.now()
		d.anchorVirt = d.engine.CurrentTime()
		d.anchored = true
	})
}

// IsPaused reports whether virtual time is frozen. Call it from a function
// passed to Do.
func (d *Driver) IsPaused() bool {
	return d.paused
}
