package eeg

import "math"

// Oscillator frequencies of the synthesized rhythms, in Hz.
const (
	AlphaFreq = 10.0
	BetaFreq  = 22.0
)

// An AmplitudeModel gives the amplitudes of the alpha and beta rhythms at a
// point in time, in microvolts.
type AmplitudeModel interface {
	Amplitudes(t float64) (alpha, beta float64)
}

// ModulatedAmplitudes slowly swings both rhythms. The alpha amplitude is
// 15 ± 10 µV with a 5 s time constant and the beta amplitude is 8 ± 6 µV with a
// 1.5 s time constant, so neither reaches zero.
type ModulatedAmplitudes struct{}

// Amplitudes returns the modulated amplitudes at t seconds.
func (ModulatedAmplitudes) Amplitudes(t float64) (alpha, beta float64) {
	alpha = 15 + 10*math.Sin(t/5)
	beta = 8 + 6*math.Sin(t/1.5)

	return alpha, beta
}

// FixedAmplitudes always returns the same amplitudes.
type FixedAmplitudes struct {
	Alpha float64
	Beta  float64
}

// Amplitudes returns the fixed amplitudes.
func (a FixedAmplitudes) Amplitudes(float64) (alpha, beta float64) {
	return a.Alpha, a.Beta
}

// A NoiseSource produces uniform random numbers in [0, 1). *rand.Rand
// satisfies it.
type NoiseSource interface {
	Float64() float64
}

// synthesize mixes the two rhythms at time t and adds noise.
func synthesize(t, alphaAmp, betaAmp, noise float64) float64 {
	alphaWave := alphaAmp * math.Sin(2*math.Pi*AlphaFreq*t)
	betaWave := betaAmp * math.Sin(2*math.Pi*BetaFreq*t)

	return alphaWave + betaWave + noise
}

// centeredNoise maps a [0, 1) draw onto [-halfWidth, halfWidth).
func centeredNoise(src NoiseSource, halfWidth float64) float64 {
	return (src.Float64() - 0.5) * 2 * halfWidth
}
