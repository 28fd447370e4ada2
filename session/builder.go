package session

import (
	"log"
	"time"

	"github.com/neurotrack/neurotrack/eeg"
	"github.com/neurotrack/neurotrack/sim"
)

// Default durations of a session.
const (
	DefaultSampleInterval      = 4 * time.Millisecond
	DefaultCalibrationDuration = 180 * time.Second
	DefaultGuidedDuration      = 90 * time.Second
)

// Builder can build session controllers.
type Builder struct {
	engine              sim.EventScheduler
	model               *eeg.Model
	sampleInterval      time.Duration
	calibrationDuration time.Duration
	guidedDuration      time.Duration
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		sampleInterval:      DefaultSampleInterval,
		calibrationDuration: DefaultCalibrationDuration,
		guidedDuration:      DefaultGuidedDuration,
	}
}

// WithEngine sets the engine that drives the timers.
func (b Builder) WithEngine(engine sim.EventScheduler) Builder {
	b.engine = engine
	return b
}

// WithModel sets the signal model. If no model is given, a default model
// sampled at the sample interval is created.
func (b Builder) WithModel(m *eeg.Model) Builder {
	b.model = m
	return b
}

// WithSampleInterval sets the time between two samples while monitoring.
func (b Builder) WithSampleInterval(d time.Duration) Builder {
	b.sampleInterval = d
	return b
}

// WithCalibrationDuration sets the countdown of the calibrating mode.
func (b Builder) WithCalibrationDuration(d time.Duration) Builder {
	b.calibrationDuration = d
	return b
}

// WithGuidedDuration sets the countdown of the guided mode.
func (b Builder) WithGuidedDuration(d time.Duration) Builder {
	b.guidedDuration = d
	return b
}

// Build creates an idle controller.
func (b Builder) Build(name string) *Controller {
	sim.NameMustBeValid(name)

	if b.engine == nil {
		log.Panicf("controller %s: engine is not set", name)
	}

	if b.calibrationDuration < time.Second || b.guidedDuration < time.Second {
		log.Panicf("controller %s: countdowns must last at least 1s", name)
	}

	c := &Controller{
		name:                name,
		engine:              b.engine,
		model:               b.model,
		calibrationDuration: b.calibrationDuration,
		guidedDuration:      b.guidedDuration,
	}

	if c.model == nil {
		c.model = eeg.MakeBuilder().
			WithSampleRate(sim.FreqFromInterval(b.sampleInterval)).
			Build(sim.BuildName(name, "Model"))
	}

	c.sampleTimer = sim.NewTimer(
		sim.BuildName(name, "SampleTimer"),
		b.engine,
		sim.FreqFromInterval(b.sampleInterval),
		c,
	)
	c.countdownTimer = sim.NewTimer(
		sim.BuildName(name, "CountdownTimer"),
		b.engine,
		1*sim.Hz,
		c,
	)
	c.completionTimer = sim.NewSingleShotTimer(
		sim.BuildName(name, "CalibrationTimer"),
		b.engine,
		sim.VTime(b.calibrationDuration),
		c,
	).AsSecondary()

	return c
}
