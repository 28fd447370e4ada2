package session

import "fmt"

// Phase is the lifecycle phase of a session.
type Phase int

// Lifecycle phases. Idle is both the initial phase and the phase every stop
// returns to.
const (
	PhaseIdle Phase = iota
	PhaseCalibrating
	PhaseGuided
	PhaseMonitoring
	PhasePaused
)

var phaseNames = [...]string{
	PhaseIdle:        "idle",
	PhaseCalibrating: "calibrating",
	PhaseGuided:      "guided",
	PhaseMonitoring:  "monitoring",
	PhasePaused:      "paused",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}

	return phaseNames[p]
}

// MarshalText encodes the phase as its name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}

	return fmt.Errorf("unknown phase %q", text)
}

// InCalibration tells if a calibration countdown belongs to the phase.
func (p Phase) InCalibration() bool {
	return p == PhaseCalibrating || p == PhaseGuided
}

// Trigger is something that may move a session from one phase to another.
type Trigger int

// The triggers of the lifecycle.
const (
	TriggerStartImmediate Trigger = iota
	TriggerStartCalibrating
	TriggerStartGuided
	TriggerCountdownTick
	TriggerCalibrationComplete
	TriggerTogglePause
	TriggerStop
)

var triggerNames = [...]string{
	TriggerStartImmediate:      "start-immediate",
	TriggerStartCalibrating:    "start-calibrating",
	TriggerStartGuided:         "start-guided",
	TriggerCountdownTick:       "countdown-tick",
	TriggerCalibrationComplete: "calibration-complete",
	TriggerTogglePause:         "toggle-pause",
	TriggerStop:                "stop",
}

func (t Trigger) String() string {
	if t < 0 || int(t) >= len(triggerNames) {
		return fmt.Sprintf("Trigger(%d)", int(t))
	}

	return triggerNames[t]
}

// MarshalText encodes the trigger as its name.
func (t Trigger) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a trigger name.
func (t *Trigger) UnmarshalText(text []byte) error {
	for i, name := range triggerNames {
		if name == string(text) {
			*t = Trigger(i)
			return nil
		}
	}

	return fmt.Errorf("unknown trigger %q", text)
}

// anyPhase matches every source phase in the transition table.
const anyPhase Phase = -1

type transition struct {
	from    Phase
	trigger Trigger
	to      Phase
}

// transitions is the complete lifecycle. A trigger that has no row for the
// current phase is ignored.
var transitions = []transition{
	{anyPhase, TriggerStartImmediate, PhaseMonitoring},
	{anyPhase, TriggerStartCalibrating, PhaseCalibrating},
	{anyPhase, TriggerStartGuided, PhaseGuided},
	{PhaseCalibrating, TriggerCountdownTick, PhaseCalibrating},
	{PhaseGuided, TriggerCountdownTick, PhaseGuided},
	{PhaseCalibrating, TriggerCalibrationComplete, PhaseMonitoring},
	{PhaseGuided, TriggerCalibrationComplete, PhaseMonitoring},
	{PhaseMonitoring, TriggerTogglePause, PhasePaused},
	{PhasePaused, TriggerTogglePause, PhaseMonitoring},
	{anyPhase, TriggerStop, PhaseIdle},
}

// NextPhase looks up where a trigger leads from a phase. It returns false if
// the trigger is not valid in that phase.
func NextPhase(from Phase, trigger Trigger) (Phase, bool) {
	for _, t := range transitions {
		if t.trigger != trigger {
			continue
		}

		if t.from == anyPhase || t.from == from {
			return t.to, true
		}
	}

	return from, false
}
