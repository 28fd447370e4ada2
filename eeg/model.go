package eeg

import (
	"maps"

	"github.com/neurotrack/neurotrack/sim"
)

// HookPosSnapshot is triggered after every state change of a Model. The hook
// item is a Snapshot.
var HookPosSnapshot = &sim.HookPos{Name: "Snapshot"}

// HookPosAcuteEvent is triggered when an Advance detects an acute event. The
// hook item is an AcuteEvent. It fires before the snapshot of the same tick.
var HookPosAcuteEvent = &sim.HookPos{Name: "AcuteEvent"}

// Model synthesizes an EEG-like signal and the metrics derived from it.
//
// A Model is not safe for concurrent use. It is meant to be owned by one
// session controller and driven by one scheduler.
type Model struct {
	sim.HookableBase

	name       string
	sampleRate float64
	amplitudes AmplitudeModel
	noise      NoiseSource

	waveform     *RingBuffer
	ratioHistory *RingBuffer

	sessionTimeMs  float64
	timeOffset     float64
	alphaBetaRatio float64
	cognitiveState CognitiveState
	stateColor     ColorToken
	acuteEvent     bool
	bandPowers     []BandPower

	patientData      map[string]string
	connectionStatus string
	isSimulation     bool
}

// Name returns the name of the model.
func (m *Model) Name() string {
	return m.name
}

// IsSimulation tells if Advance synthesizes samples.
func (m *Model) IsSimulation() bool {
	return m.isSimulation
}

// SetSimulation turns sample synthesis on or off. With simulation off,
// Advance does nothing; that is where a live acquisition path would go.
func (m *Model) SetSimulation(on bool) {
	m.isSimulation = on
}

// RatioHistoryLen returns the number of ratios in the rolling history.
func (m *Model) RatioHistoryLen() int {
	return m.ratioHistory.Len()
}

// Advance produces one sample and recomputes every derived metric. It
// returns the new snapshot, or false if simulation is off, in which case no
// state changes and nothing is emitted.
func (m *Model) Advance() (Snapshot, bool) {
	if !m.isSimulation {
		return Snapshot{}, false
	}

	m.sessionTimeMs += 1000 / m.sampleRate
	m.timeOffset += 1 / m.sampleRate

	alphaAmp, betaAmp := m.amplitudes.Amplitudes(m.timeOffset)
	sample := synthesize(
		m.timeOffset, alphaAmp, betaAmp, centeredNoise(m.noise, 5))
	m.waveform.Push(sample)

	alphaPower := alphaAmp * alphaAmp
	betaPower := betaAmp * betaAmp
	m.alphaBetaRatio = alphaBetaRatio(alphaPower, betaPower)
	m.cognitiveState, m.stateColor = Classify(m.alphaBetaRatio)

	previous := m.ratioHistory.Last()
	m.acuteEvent = IsAcuteDrop(previous, m.alphaBetaRatio)
	if m.acuteEvent {
		m.cognitiveState = StateAcute
		m.stateColor = ColorHighLoad
	}

	m.ratioHistory.Push(m.alphaBetaRatio)
	m.bandPowers = synthesizeBandPowers(m.noise, alphaPower, betaPower)

	if m.acuteEvent {
		m.Notify(m, HookPosAcuteEvent, func() any {
			return AcuteEvent{
				SessionTimeMs: m.sessionTimeMs,
				PreviousRatio: previous,
				Ratio:         m.alphaBetaRatio,
			}
		})
	}

	return m.emit(), true
}

// Reset restores the simulation state of a new model and emits the cleared
// snapshot. Patient data, connection status and the simulation flag are
// kept.
func (m *Model) Reset() Snapshot {
	m.resetSimulation()
	return m.emit()
}

func (m *Model) resetSimulation() {
	m.sessionTimeMs = 0
	m.timeOffset = 0
	m.waveform.Fill(0)
	m.ratioHistory.Reset(1.0)
	m.alphaBetaRatio = 1.0
	m.cognitiveState = StateIdle
	m.stateColor = ColorIdle
	m.acuteEvent = false
	m.bandPowers = zeroBandPowers()
}

// SetPatientData replaces the patient metadata and emits a snapshot. The map
// is copied; later changes by the caller do not leak into the model.
func (m *Model) SetPatientData(data map[string]string) Snapshot {
	m.patientData = maps.Clone(data)
	if m.patientData == nil {
		m.patientData = make(map[string]string)
	}

	return m.emit()
}

// SetConnectionStatus replaces the connection status and emits a snapshot.
func (m *Model) SetConnectionStatus(status string) Snapshot {
	m.connectionStatus = status
	return m.emit()
}

// Snapshot returns the current state without emitting it.
func (m *Model) Snapshot() Snapshot {
	return Snapshot{
		PatientData:      maps.Clone(m.patientData),
		SessionTimeMs:    m.sessionTimeMs,
		Waveform:         m.waveform.Values(),
		BandPowers:       append([]BandPower(nil), m.bandPowers...),
		AlphaBetaRatio:   m.alphaBetaRatio,
		CognitiveState:   m.cognitiveState,
		StateColor:       m.stateColor,
		AcuteEvent:       m.acuteEvent,
		ConnectionStatus: m.connectionStatus,
		IsSimulation:     m.isSimulation,
	}
}

func (m *Model) emit() Snapshot {
	snapshot := m.Snapshot()

	m.Notify(m, HookPosSnapshot, func() any { return snapshot })

	return snapshot
}
