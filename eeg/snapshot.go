package eeg

import (
	"fmt"
	"maps"
	"slices"
)

// Band names, in the order they appear in a snapshot.
const (
	BandTheta = "Theta (4-8Hz)"
	BandAlpha = "Alpha (8-13Hz)"
	BandBeta  = "Beta (13-30Hz)"
	BandGamma = "Gamma (>30Hz)"
)

// Upper bounds of the noise that goes into the synthesized band powers.
const (
	thetaNoiseSpan     = 200.0
	gammaNoiseSpan     = 150.0
	alphaBetaNoiseSpan = 50.0
	bandPowerGain      = 10.0
)

// BandPower is the synthesized magnitude of one frequency band.
type BandPower struct {
	Name  string  `json:"name"`
	Power float64 `json:"power"`
}

func zeroBandPowers() []BandPower {
	return []BandPower{
		{Name: BandTheta},
		{Name: BandAlpha},
		{Name: BandBeta},
		{Name: BandGamma},
	}
}

// synthesizeBandPowers stands in for a spectral transform. Alpha and beta
// follow the oscillator powers; theta and gamma carry no signal at all.
func synthesizeBandPowers(
	src NoiseSource,
	alphaPower, betaPower float64,
) []BandPower {
	return []BandPower{
		{Name: BandTheta, Power: src.Float64() * thetaNoiseSpan},
		{
			Name:  BandAlpha,
			Power: alphaPower*bandPowerGain + src.Float64()*alphaBetaNoiseSpan,
		},
		{
			Name:  BandBeta,
			Power: betaPower*bandPowerGain + src.Float64()*alphaBetaNoiseSpan,
		},
		{Name: BandGamma, Power: src.Float64() * gammaNoiseSpan},
	}
}

// A Snapshot is a copy of the public state of a Model. The model never
// touches a snapshot after handing it out.
type Snapshot struct {
	PatientData      map[string]string `json:"patientData"`
	SessionTimeMs    float64           `json:"sessionTime"`
	Waveform         []float64         `json:"eegWaveform"`
	BandPowers       []BandPower       `json:"fftData"`
	AlphaBetaRatio   float64           `json:"alphaBetaRatio"`
	CognitiveState   CognitiveState    `json:"cognitiveState"`
	StateColor       ColorToken        `json:"stateColor"`
	AcuteEvent       bool              `json:"acuteEvent"`
	ConnectionStatus string            `json:"connectionStatus"`
	IsSimulation     bool              `json:"isSimulation"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	s.PatientData = maps.Clone(s.PatientData)
	s.Waveform = slices.Clone(s.Waveform)
	s.BandPowers = slices.Clone(s.BandPowers)

	return s
}

// BandPower returns the power of the named band and whether it exists.
func (s Snapshot) BandPower(name string) (float64, bool) {
	for _, b := range s.BandPowers {
		if b.Name == name {
			return b.Power, true
		}
	}

	return 0, false
}

// SessionTime renders the elapsed session time as HH:MM:SS.
func (s Snapshot) SessionTime() string {
	return FormatSessionTime(s.SessionTimeMs)
}

// FormatSessionTime renders milliseconds as HH:MM:SS. Hours wrap at 24.
func FormatSessionTime(ms float64) string {
	total := int64(ms / 1000)
	seconds := total % 60
	minutes := (total / 60) % 60
	hours := (total / 3600) % 24

	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// AcuteEvent describes a detected acute event.
type AcuteEvent struct {
	SessionTimeMs float64 `json:"sessionTime"`
	PreviousRatio float64 `json:"previousRatio"`
	Ratio         float64 `json:"ratio"`
}

// Drop returns how much the ratio fell.
func (e AcuteEvent) Drop() float64 {
	return e.PreviousRatio - e.Ratio
}
