package session

import (
	"log"

	"github.com/neurotrack/neurotrack/eeg"
	"github.com/neurotrack/neurotrack/sim"
)

// PhaseLogger is a hook that writes lifecycle changes and acute events to a
// logger. Attach it to a Controller, and to its Model to see acute events.
type PhaseLogger struct {
	*log.Logger
}

// NewPhaseLogger creates a PhaseLogger that writes to logger.
func NewPhaseLogger(logger *log.Logger) *PhaseLogger {
	return &PhaseLogger{Logger: logger}
}

// Func writes one line for phase changes, the start and the end of a
// countdown, and acute events. Everything else is ignored.
func (l *PhaseLogger) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case HookPosPhaseChange:
		c := ctx.Item.(PhaseChange)
		l.Printf("%.3f, %s, %s -> %s (%s)",
			c.Time, c.SessionID, c.From, c.To, c.Trigger)
	case HookPosCountdown:
		c := ctx.Item.(Calibration)
		if c.Remaining == c.Total || c.Remaining == 0 {
			l.Printf("%s %s", c.Title, c.Countdown())
		}
	case eeg.HookPosAcuteEvent:
		e := ctx.Item.(eeg.AcuteEvent)
		l.Printf("%s, acute event, ratio %.2f -> %.2f",
			eeg.FormatSessionTime(e.SessionTimeMs), e.PreviousRatio, e.Ratio)
	}
}
