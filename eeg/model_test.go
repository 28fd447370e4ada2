package eeg

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/neurotrack/neurotrack/sim"
)

type constantNoise float64

func (n constantNoise) Float64() float64 {
	return float64(n)
}

type hookRecorder struct {
	snapshots []Snapshot
	acute     []AcuteEvent
}

func (r *hookRecorder) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case HookPosSnapshot:
		r.snapshots = append(r.snapshots, ctx.Item.(Snapshot))
	case HookPosAcuteEvent:
		r.acute = append(r.acute, ctx.Item.(AcuteEvent))
	}
}

var _ = Describe("Model", func() {
	var (
		m        *Model
		recorder *hookRecorder
	)

	BeforeEach(func() {
		m = MakeBuilder().
			WithNoiseSource(constantNoise(0.5)).
			Build("NeuroTrack.Model")
		recorder = &hookRecorder{}
		m.AcceptHook(recorder)
	})

	It("should start in the idle state", func() {
		s := m.Snapshot()

		Expect(s.SessionTimeMs).To(Equal(0.0))
		Expect(s.Waveform).To(HaveLen(DefaultWaveformLength))
		Expect(s.Waveform).To(HaveEach(0.0))
		Expect(s.AlphaBetaRatio).To(Equal(1.0))
		Expect(s.CognitiveState).To(Equal(StateIdle))
		Expect(s.StateColor).To(Equal(ColorIdle))
		Expect(s.AcuteEvent).To(BeFalse())
		Expect(m.RatioHistoryLen()).To(Equal(1))
	})

	It("should keep a sliding waveform window", func() {
		var previous Snapshot
		for i := 0; i < 600; i++ {
			s, ok := m.Advance()
			Expect(ok).To(BeTrue())
			Expect(s.Waveform).To(HaveLen(DefaultWaveformLength))

			alphaAmp, betaAmp := ModulatedAmplitudes{}.Amplitudes(m.timeOffset)
			expected := synthesize(m.timeOffset, alphaAmp, betaAmp, 0)
			Expect(s.Waveform[len(s.Waveform)-1]).To(Equal(expected))

			if i > 0 {
				Expect(s.Waveform[:len(s.Waveform)-1]).
					To(Equal(previous.Waveform[1:]))
			}
			previous = s
		}
	})

	It("should accumulate session time", func() {
		for i := 0; i < 250; i++ {
			m.Advance()
		}

		s := m.Snapshot()
		Expect(s.SessionTimeMs).To(Equal(1000.0))
		Expect(s.SessionTime()).To(Equal("00:00:01"))
		Expect(m.timeOffset).To(BeNumerically("~", 1.0, 1e-9))
	})

	It("should bound the ratio history", func() {
		for i := 0; i < 1000; i++ {
			m.Advance()
			Expect(m.RatioHistoryLen()).To(BeNumerically("<=", 250))
		}

		Expect(m.RatioHistoryLen()).To(Equal(250))
	})

	It("should keep the ratio positive and classified", func() {
		for i := 0; i < 5000; i++ {
			s, _ := m.Advance()
			Expect(s.AlphaBetaRatio).To(BeNumerically(">", 0))

			if s.AcuteEvent {
				Expect(s.CognitiveState).To(Equal(StateAcute))
				continue
			}

			state, color := Classify(s.AlphaBetaRatio)
			Expect(s.CognitiveState).To(Equal(state))
			Expect(s.StateColor).To(Equal(color))
		}
	})

	It("should emit a snapshot on every advance", func() {
		m.Advance()
		m.Advance()

		Expect(recorder.snapshots).To(HaveLen(2))
		Expect(recorder.snapshots[1].SessionTimeMs).To(Equal(8.0))
	})

	Context("with fixed amplitudes", func() {
		build := func(alpha, beta float64) {
			m = MakeBuilder().
				WithNoiseSource(constantNoise(0.5)).
				WithAmplitudeModel(FixedAmplitudes{Alpha: alpha, Beta: beta}).
				Build("NeuroTrack.Model")
			m.AcceptHook(recorder)
		}

		It("should derive the ratio from the powers", func() {
			build(3, 1.5)

			s, _ := m.Advance()

			Expect(s.AlphaBetaRatio).To(Equal(4.0))
			Expect(s.CognitiveState).To(Equal(StateCalm))
		})

		It("should fall back to alpha power for a tiny beta", func() {
			build(1.2, 0.5)

			s, _ := m.Advance()

			Expect(s.AlphaBetaRatio).To(BeNumerically("~", 1.44, 1e-12))
			Expect(s.CognitiveState).To(Equal(StateHighLoad))
		})

		It("should synthesize band powers", func() {
			build(3, 1.5)

			s, _ := m.Advance()

			Expect(s.BandPowers).To(Equal([]BandPower{
				{Name: BandTheta, Power: 100},
				{Name: BandAlpha, Power: 115},
				{Name: BandBeta, Power: 47.5},
				{Name: BandGamma, Power: 75},
			}))
			p, ok := s.BandPower(BandBeta)
			Expect(ok).To(BeTrue())
			Expect(p).To(Equal(47.5))
		})

		It("should flag a drop of more than 2.0 as acute", func() {
			build(1.7, 1)
			m.ratioHistory.Reset(5.0)

			s, _ := m.Advance()

			Expect(s.AlphaBetaRatio).To(BeNumerically("~", 2.89, 1e-9))
			Expect(s.AcuteEvent).To(BeTrue())
			Expect(s.CognitiveState).To(Equal(StateAcute))
			Expect(s.StateColor).To(Equal(ColorHighLoad))
			Expect(recorder.acute).To(HaveLen(1))
			Expect(recorder.acute[0].PreviousRatio).To(Equal(5.0))
			Expect(recorder.acute[0].Drop()).To(BeNumerically(">", 2.0))
		})

		It("should not flag a drop of exactly 2.0", func() {
			build(3, 1.5)
			m.ratioHistory.Reset(6.0)

			s, _ := m.Advance()

			Expect(s.AlphaBetaRatio).To(Equal(4.0))
			Expect(s.AcuteEvent).To(BeFalse())
			Expect(s.CognitiveState).To(Equal(StateCalm))
			Expect(recorder.acute).To(BeEmpty())
		})

		It("should compare against the ratio before the update", func() {
			build(3, 1.5)

			first, _ := m.Advance()
			second, _ := m.Advance()

			Expect(first.AcuteEvent).To(BeFalse())
			Expect(second.AcuteEvent).To(BeFalse())
			Expect(m.ratioHistory.Values()).To(Equal([]float64{1, 4, 4}))
		})
	})

	It("should do nothing when simulation is off", func() {
		m.SetSimulation(false)
		before := m.Snapshot()

		s, ok := m.Advance()

		Expect(ok).To(BeFalse())
		Expect(s).To(Equal(Snapshot{}))
		Expect(m.Snapshot()).To(Equal(before))
		Expect(recorder.snapshots).To(BeEmpty())
	})

	It("should reset idempotently", func() {
		for i := 0; i < 300; i++ {
			m.Advance()
		}

		first := m.Reset()
		second := m.Reset()

		Expect(first).To(Equal(second))
		Expect(first.SessionTimeMs).To(Equal(0.0))
		Expect(first.Waveform).To(HaveEach(0.0))
		Expect(first.Waveform).To(HaveLen(DefaultWaveformLength))
		Expect(first.AlphaBetaRatio).To(Equal(1.0))
		Expect(first.CognitiveState).To(Equal(StateIdle))
		Expect(m.RatioHistoryLen()).To(Equal(1))
		Expect(m.timeOffset).To(Equal(0.0))
	})

	It("should keep metadata across a reset", func() {
		m.SetPatientData(map[string]string{"name": "Jane Doe"})
		m.SetConnectionStatus("Simulated")

		s := m.Reset()

		Expect(s.PatientData).To(HaveKeyWithValue("name", "Jane Doe"))
		Expect(s.ConnectionStatus).To(Equal("Simulated"))
	})

	It("should emit on every setter", func() {
		m.Reset()
		m.SetPatientData(map[string]string{"id": "PID-98765"})
		m.SetConnectionStatus("Connected")

		Expect(recorder.snapshots).To(HaveLen(3))
		Expect(recorder.snapshots[1].PatientData).
			To(HaveKeyWithValue("id", "PID-98765"))
		Expect(recorder.snapshots[2].ConnectionStatus).To(Equal("Connected"))
	})

	It("should not share state with snapshots or callers", func() {
		data := map[string]string{"name": "Jane Doe"}
		s := m.SetPatientData(data)
		data["name"] = "Someone Else"
		s.PatientData["name"] = "Changed"
		s.Waveform[0] = 99

		fresh := m.Snapshot()
		Expect(fresh.PatientData).To(HaveKeyWithValue("name", "Jane Doe"))
		Expect(fresh.Waveform[0]).To(Equal(0.0))
	})

	It("should accept a nil patient map", func() {
		s := m.SetPatientData(nil)

		Expect(s.PatientData).NotTo(BeNil())
		Expect(s.PatientData).To(BeEmpty())
	})
})

var _ = Describe("FormatSessionTime", func() {
	It("should render hours, minutes and seconds", func() {
		Expect(FormatSessionTime(0)).To(Equal("00:00:00"))
		Expect(FormatSessionTime(61_500)).To(Equal("00:01:01"))
		Expect(FormatSessionTime(3_723_000)).To(Equal("01:02:03"))
		Expect(FormatSessionTime(25 * 3_600_000)).To(Equal("01:00:00"))
	})
})
