package session

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownMode is returned when a session mode cannot be recognized.
var ErrUnknownMode = errors.New("unknown session mode")

// Mode selects how a session starts.
type Mode int

// The start modes of a session.
const (
	ModeImmediate Mode = iota
	ModeCalibrating
	ModeGuided
)

var modeNames = map[Mode]string{
	ModeImmediate:   "immediate",
	ModeCalibrating: "calibrating",
	ModeGuided:      "guided",
}

// ParseMode converts a mode name into a Mode. Names are case-insensitive.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for m, n := range modeNames {
		if n == name {
			return m, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

func (m Mode) String() string {
	if n, ok := modeNames[m]; ok {
		return n
	}

	return fmt.Sprintf("Mode(%d)", int(m))
}

// MarshalText encodes the mode as its name.
func (m Mode) MarshalText() ([]byte, error) {
	if _, ok := modeNames[m]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}

	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}

	*m = parsed

	return nil
}

// IsCalibration tells if the mode runs a countdown before monitoring.
func (m Mode) IsCalibration() bool {
	return m == ModeCalibrating || m == ModeGuided
}

func (m Mode) valid() bool {
	_, ok := modeNames[m]
	return ok
}

func (m Mode) trigger() Trigger {
	switch m {
	case ModeCalibrating:
		return TriggerStartCalibrating
	case ModeGuided:
		return TriggerStartGuided
	default:
		return TriggerStartImmediate
	}
}

// Calibration describes what the user sees while a calibration countdown
// runs.
type Calibration struct {
	Title     string `json:"title"`
	Prompt    string `json:"prompt"`
	Remaining int    `json:"remaining"`
	Total     int    `json:"total"`
}

// Countdown renders the remaining time as MM:SS.
func (c Calibration) Countdown() string {
	return FormatCountdown(c.Remaining)
}

// FormatCountdown renders whole seconds as MM:SS. Negative values render as
// 00:00.
func FormatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}

	d := time.Duration(seconds) * time.Second
	minutes := int(d / time.Minute)
	secs := int((d % time.Minute) / time.Second)

	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

func calibrationText(m Mode) (title, prompt string) {
	switch m {
	case ModeGuided:
		return "Guided Relaxation", "Please follow the breathing guide."
	default:
		return "Calibrating...", "Please relax for the duration."
	}
}
