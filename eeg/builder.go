package eeg

import (
	"log"
	"math/rand"

	"github.com/neurotrack/neurotrack/sim"
)

// Defaults of a Model.
const (
	DefaultSampleRate         = 250 * sim.Hz
	DefaultWaveformLength     = 500
	DefaultRatioHistoryLength = 250
)

// Builder can build models.
type Builder struct {
	sampleRate         sim.Freq
	waveformLength     int
	ratioHistoryLength int
	amplitudes         AmplitudeModel
	noise              NoiseSource
	seed               int64
	simulation         bool
	connectionStatus   string
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		sampleRate:         DefaultSampleRate,
		waveformLength:     DefaultWaveformLength,
		ratioHistoryLength: DefaultRatioHistoryLength,
		amplitudes:         ModulatedAmplitudes{},
		seed:               1,
		simulation:         true,
		connectionStatus:   "Disconnected",
	}
}

// WithSampleRate sets the rate at which Advance is expected to be called.
func (b Builder) WithSampleRate(f sim.Freq) Builder {
	b.sampleRate = f
	return b
}

// WithWaveformLength sets the number of samples kept in the waveform.
func (b Builder) WithWaveformLength(n int) Builder {
	b.waveformLength = n
	return b
}

// WithRatioHistoryLength sets how many ratios the rolling history keeps.
func (b Builder) WithRatioHistoryLength(n int) Builder {
	b.ratioHistoryLength = n
	return b
}

// WithAmplitudeModel replaces the oscillator amplitude modulation.
func (b Builder) WithAmplitudeModel(a AmplitudeModel) Builder {
	b.amplitudes = a
	return b
}

// WithNoiseSource sets the source of all random noise. It takes precedence
// over WithSeed.
func (b Builder) WithNoiseSource(n NoiseSource) Builder {
	b.noise = n
	return b
}

// WithSeed seeds the default noise source.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithSimulation sets whether the model synthesizes samples.
func (b Builder) WithSimulation(on bool) Builder {
	b.simulation = on
	return b
}

// WithConnectionStatus sets the initial connection status.
func (b Builder) WithConnectionStatus(status string) Builder {
	b.connectionStatus = status
	return b
}

// Build creates a model in its reset state.
func (b Builder) Build(name string) *Model {
	sim.NameMustBeValid(name)

	if b.sampleRate <= 0 {
		log.Panicf("model %s: sample rate must be positive", name)
	}

	m := &Model{
		name:             name,
		sampleRate:       float64(b.sampleRate),
		amplitudes:       b.amplitudes,
		noise:            b.noise,
		waveform:         NewRingBuffer(b.waveformLength),
		ratioHistory:     NewRingBuffer(b.ratioHistoryLength),
		patientData:      make(map[string]string),
		connectionStatus: b.connectionStatus,
		isSimulation:     b.simulation,
	}

	if m.noise == nil {
		m.noise = rand.New(rand.NewSource(b.seed))
	}

	m.resetSimulation()

	return m
}
