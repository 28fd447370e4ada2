package session

import (
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/neurotrack/neurotrack/eeg"
	"github.com/neurotrack/neurotrack/sim"
)

// HookPosPhaseChange is triggered whenever the phase of a session changes.
// The hook item is a PhaseChange.
var HookPosPhaseChange = &sim.HookPos{Name: "PhaseChange"}

// HookPosCountdown is triggered when a calibration countdown starts and on
// every countdown tick. The hook item is a Calibration.
var HookPosCountdown = &sim.HookPos{Name: "Countdown"}

// PhaseChange records one move of the lifecycle.
type PhaseChange struct {
	SessionID string         `json:"sessionId"`
	Time      sim.VTimeInSec `json:"time"`
	From      Phase          `json:"from"`
	To        Phase          `json:"to"`
	Trigger   Trigger        `json:"trigger"`
}

// Status is a copy of the lifecycle state of a Controller.
type Status struct {
	SessionID            string         `json:"sessionId"`
	Now                  sim.VTimeInSec `json:"now"`
	Phase                Phase          `json:"phase"`
	Mode                 Mode           `json:"mode"`
	IsRunning            bool           `json:"isRunning"`
	CalibrationRemaining int            `json:"calibrationRemaining"`
	SampleTimerActive    bool           `json:"sampleTimerActive"`
	CountdownTimerActive bool           `json:"countdownTimerActive"`
	CompletionPending    bool           `json:"completionPending"`
}

// A Controller runs the lifecycle of monitoring sessions. It owns the signal
// model and the timers that drive it.
//
// All methods must be called from the goroutine that runs the engine. Timer
// callbacks arrive on that goroutine too, so no two of them ever overlap.
type Controller struct {
	sim.HookableBase

	name   string
	engine sim.EventScheduler
	model  *eeg.Model

	calibrationDuration time.Duration
	guidedDuration      time.Duration

	sampleTimer     *sim.Timer
	countdownTimer  *sim.Timer
	completionTimer *sim.Timer

	sessionID            string
	phase                Phase
	mode                 Mode
	isRunning            bool
	calibrationRemaining int
	calibrationTotal     int
}

// Name returns the name of the controller.
func (c *Controller) Name() string {
	return c.name
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	return c.phase
}

// IsRunning tells if samples are being produced.
func (c *Controller) IsRunning() bool {
	return c.isRunning
}

// CalibrationRemaining returns the seconds left on the calibration
// countdown.
func (c *Controller) CalibrationRemaining() int {
	return c.calibrationRemaining
}

// SessionID returns the ID of the active session, or an empty string when
// idle.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// Snapshot returns the current state of the signal model.
func (c *Controller) Snapshot() eeg.Snapshot {
	return c.model.Snapshot()
}

// Status returns a copy of the lifecycle state.
func (c *Controller) Status() Status {
	return Status{
		SessionID:            c.sessionID,
		Now:                  c.engine.CurrentTime(),
		Phase:                c.phase,
		Mode:                 c.mode,
		IsRunning:            c.isRunning,
		CalibrationRemaining: c.calibrationRemaining,
		SampleTimerActive:    c.sampleTimer.IsActive(),
		CountdownTimerActive: c.countdownTimer.IsActive(),
		CompletionPending:    c.completionTimer.IsActive(),
	}
}

// CalibrationStatus describes the running calibration. It returns false when
// no calibration is in progress.
func (c *Controller) CalibrationStatus() (Calibration, bool) {
	if !c.phase.InCalibration() {
		return Calibration{}, false
	}

	return c.calibration(), true
}

func (c *Controller) calibration() Calibration {
	title, prompt := calibrationText(c.mode)

	return Calibration{
		Title:     title,
		Prompt:    prompt,
		Remaining: c.calibrationRemaining,
		Total:     c.calibrationTotal,
	}
}

// StartSession stops whatever runs, resets the model and starts a new
// session in the given mode.
func (c *Controller) StartSession(mode Mode) error {
	if !mode.valid() {
		return fmt.Errorf("start session: %w: %d", ErrUnknownMode, int(mode))
	}

	c.stop(false)
	c.model.Reset()

	c.sessionID = xid.New().String()
	c.mode = mode
	c.fire(mode.trigger())

	switch mode {
	case ModeImmediate:
		c.startMonitoring()
	case ModeCalibrating:
		c.startCalibration(c.calibrationDuration)
	case ModeGuided:
		c.startCalibration(c.guidedDuration)
	}

	return nil
}

// TogglePauseResume flips between monitoring and paused. In any other phase
// it does nothing.
func (c *Controller) TogglePauseResume() {
	if !c.fire(TriggerTogglePause) {
		return
	}

	c.isRunning = !c.isRunning
	if c.isRunning {
		c.sampleTimer.Start()
		return
	}

	c.sampleTimer.Stop()
}

// StopSession halts every timer, resets the model and returns to idle. If
// resetPatient is set, the patient data is cleared as well.
func (c *Controller) StopSession(resetPatient bool) {
	c.stop(resetPatient)
}

// AbortStartup handles a session setup that was given up before a mode was
// chosen. The controller ends up idle with nothing running.
func (c *Controller) AbortStartup() {
	c.stop(false)
}

// SetPatientData replaces the patient metadata of the model.
func (c *Controller) SetPatientData(data map[string]string) {
	c.model.SetPatientData(data)
}

// SetConnectionStatus replaces the connection status of the model.
func (c *Controller) SetConnectionStatus(status string) {
	c.model.SetConnectionStatus(status)
}

// OnTimer routes timer firings. Firings that do not fit the current phase
// are ignored.
func (c *Controller) OnTimer(t *sim.Timer, _ sim.VTimeInSec) {
	switch t {
	case c.sampleTimer:
		c.onSample()
	case c.countdownTimer:
		c.onCountdown()
	case c.completionTimer:
		c.onCalibrationComplete()
	}
}

func (c *Controller) onSample() {
	if c.phase != PhaseMonitoring || !c.isRunning {
		return
	}

	c.model.Advance()
}

func (c *Controller) onCountdown() {
	if !c.fire(TriggerCountdownTick) {
		return
	}

	c.calibrationRemaining--
	if c.calibrationRemaining <= 0 {
		c.calibrationRemaining = 0
		c.countdownTimer.Stop()
	}

	c.invokeCountdownHook()
}

func (c *Controller) onCalibrationComplete() {
	if !c.fire(TriggerCalibrationComplete) {
		return
	}

	c.countdownTimer.Stop()
	c.startMonitoring()
}

func (c *Controller) startMonitoring() {
	c.isRunning = true
	c.sampleTimer.Start()
}

func (c *Controller) startCalibration(d time.Duration) {
	c.calibrationTotal = int(d / time.Second)
	c.calibrationRemaining = c.calibrationTotal
	c.countdownTimer.Start()

	c.completionTimer = sim.NewSingleShotTimer(
		sim.BuildName(c.name, "CalibrationTimer"),
		c.engine,
		sim.VTime(d),
		c,
	).AsSecondary()
	c.completionTimer.Start()

	c.invokeCountdownHook()
}

func (c *Controller) stop(resetPatient bool) {
	c.isRunning = false
	c.sampleTimer.Stop()
	c.countdownTimer.Stop()
	c.completionTimer.Stop()

	c.fire(TriggerStop)
	c.sessionID = ""
	c.calibrationRemaining = 0
	c.calibrationTotal = 0

	c.model.Reset()
	if resetPatient {
		c.model.SetPatientData(nil)
	}
}

// fire applies a trigger to the current phase. It returns false if the
// trigger is not valid now.
func (c *Controller) fire(trigger Trigger) bool {
	next, ok := NextPhase(c.phase, trigger)
	if !ok {
		return false
	}

	from := c.phase
	c.phase = next

	if from != next {
		c.Notify(c, HookPosPhaseChange, func() any {
			return PhaseChange{
				SessionID: c.sessionID,
				Time:      c.engine.CurrentTime(),
				From:      from,
				To:        next,
				Trigger:   trigger,
			}
		})
	}

	return true
}

func (c *Controller) invokeCountdownHook() {
	c.Notify(c, HookPosCountdown, func() any { return c.calibration() })
}
