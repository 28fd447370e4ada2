package eeg

// CognitiveState is the label the model assigns to the subject.
type CognitiveState string

// The cognitive states, from the idle state of a fresh model to the acute
// event override.
const (
	StateIdle     CognitiveState = "Idle"
	StateCalm     CognitiveState = "Calm"
	StateNeutral  CognitiveState = "Neutral / Focused"
	StateHighLoad CognitiveState = "High Cognitive Load"
	StateAcute    CognitiveState = "ACUTE EVENT DETECTED"
)

// ColorToken is the display color that goes with a cognitive state.
type ColorToken string

// Color tokens, as hex RGB.
const (
	ColorIdle     ColorToken = "#A0A0A0"
	ColorCalm     ColorToken = "#2ECC71"
	ColorNeutral  ColorToken = "#F1C40F"
	ColorHighLoad ColorToken = "#E74C3C"
)

// Classification thresholds on the alpha/beta ratio.
const (
	CalmRatioThreshold    = 2.5
	NeutralRatioThreshold = 1.5

	// AcuteDropThreshold is the single-tick ratio drop that must be exceeded
	// to flag an acute event.
	AcuteDropThreshold = 2.0
)

// Classify maps an alpha/beta ratio to a cognitive state. Thresholds are
// checked from high to low and the first match wins: above 2.5 is calm, above
// 1.5 is neutral, anything else is high load.
func Classify(ratio float64) (CognitiveState, ColorToken) {
	switch {
	case ratio > CalmRatioThreshold:
		return StateCalm, ColorCalm
	case ratio > NeutralRatioThreshold:
		return StateNeutral, ColorNeutral
	default:
		return StateHighLoad, ColorHighLoad
	}
}

// IsAcuteDrop reports whether the ratio fell by strictly more than
// AcuteDropThreshold between two consecutive ticks. There is no smoothing;
// a noisy tick can trigger it.
func IsAcuteDrop(previous, current float64) bool {
	return previous-current > AcuteDropThreshold
}

// alphaBetaRatio divides the powers unless the beta power is too small to
// divide by, in which case the alpha power alone stands in for the ratio.
func alphaBetaRatio(alphaPower, betaPower float64) float64 {
	if betaPower > 1 {
		return alphaPower / betaPower
	}

	return alphaPower
}
