package recording

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/neurotrack/neurotrack/eeg"
	"github.com/neurotrack/neurotrack/session"
	"github.com/neurotrack/neurotrack/sim"
)

// Table names of the session log.
const (
	TablePhaseChange   = "phase_change"
	TableAcuteEvent    = "acute_event"
	TableSampleSummary = "sample_summary"
	TableExecInfo      = "exec_info"
)

// PhaseChangeEntry is a row of the phase_change table.
type PhaseChangeEntry struct {
	SessionID string
	Time      float64
	FromPhase string
	ToPhase   string
	Trigger   string
}

// AcuteEventEntry is a row of the acute_event table.
type AcuteEventEntry struct {
	SessionID     string
	SessionTimeMs float64
	PreviousRatio float64
	Ratio         float64
	RatioDrop     float64
}

// SampleSummaryEntry is a row of the sample_summary table. It captures one
// snapshot out of every summary interval.
type SampleSummaryEntry struct {
	SessionID      string
	SessionTimeMs  float64
	AlphaBetaRatio float64
	CognitiveState string
	StateColor     string
	AcuteEvent     bool
	ThetaPower     float64
	AlphaPower     float64
	BetaPower      float64
	GammaPower     float64
}

// SessionRecorder is a hook that logs what happens during sessions. Attach
// it to both the session controller and its model.
type SessionRecorder struct {
	recorder DataRecorder
	reader   DataReader

	summaryInterval int
	samples         int
	lastSessionTime float64
	sessionID       string
}

// NewSessionRecorder creates the session tables in the recorder and returns
// a hook that fills them. One summary row is written every summaryInterval
// samples.
func NewSessionRecorder(
	recorder DataRecorder,
	summaryInterval int,
) *SessionRecorder {
	if summaryInterval <= 0 {
		panic("summary interval must be positive")
	}

	r := &SessionRecorder{
		recorder:        recorder,
		reader:          NewReaderWithDB(recorder.DB()),
		summaryInterval: summaryInterval,
	}

	r.createTable(TablePhaseChange, PhaseChangeEntry{})
	r.createTable(TableAcuteEvent, AcuteEventEntry{})
	r.createTable(TableSampleSummary, SampleSummaryEntry{})

	return r
}

func (r *SessionRecorder) createTable(name string, sample any) {
	r.recorder.CreateTable(name, sample)
	r.reader.MapTable(name, sample)
}

// Reader returns a reader that can query the session tables.
func (r *SessionRecorder) Reader() DataReader {
	return r.reader
}

// Func records phase changes, acute events and sampled snapshots.
func (r *SessionRecorder) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case session.HookPosPhaseChange:
		r.recordPhaseChange(ctx.Item.(session.PhaseChange))
	case eeg.HookPosAcuteEvent:
		r.recordAcuteEvent(ctx.Item.(eeg.AcuteEvent))
	case eeg.HookPosSnapshot:
		r.recordSnapshot(ctx.Item.(eeg.Snapshot))
	}
}

func (r *SessionRecorder) recordPhaseChange(c session.PhaseChange) {
	r.recorder.InsertData(TablePhaseChange, PhaseChangeEntry{
		SessionID: c.SessionID,
		Time:      float64(c.Time),
		FromPhase: c.From.String(),
		ToPhase:   c.To.String(),
		Trigger:   c.Trigger.String(),
	})

	if c.To == session.PhaseIdle {
		r.sessionID = ""
		r.recorder.Flush()
	} else {
		r.sessionID = c.SessionID
	}

	r.samples = 0
	r.lastSessionTime = 0
}

func (r *SessionRecorder) recordAcuteEvent(e eeg.AcuteEvent) {
	r.recorder.InsertData(TableAcuteEvent, AcuteEventEntry{
		SessionID:     r.sessionID,
		SessionTimeMs: e.SessionTimeMs,
		PreviousRatio: e.PreviousRatio,
		Ratio:         e.Ratio,
		RatioDrop:     e.Drop(),
	})
}

// recordSnapshot counts only snapshots that carry a new sample.
func (r *SessionRecorder) recordSnapshot(s eeg.Snapshot) {
	if s.SessionTimeMs <= r.lastSessionTime {
		r.lastSessionTime = s.SessionTimeMs
		return
	}

	r.lastSessionTime = s.SessionTimeMs
	r.samples++

	if r.samples%r.summaryInterval != 0 {
		return
	}

	theta, _ := s.BandPower(eeg.BandTheta)
	alpha, _ := s.BandPower(eeg.BandAlpha)
	beta, _ := s.BandPower(eeg.BandBeta)
	gamma, _ := s.BandPower(eeg.BandGamma)

	r.recorder.InsertData(TableSampleSummary, SampleSummaryEntry{
		SessionID:      r.sessionID,
		SessionTimeMs:  s.SessionTimeMs,
		AlphaBetaRatio: s.AlphaBetaRatio,
		CognitiveState: string(s.CognitiveState),
		StateColor:     string(s.StateColor),
		AcuteEvent:     s.AcuteEvent,
		ThetaPower:     theta,
		AlphaPower:     alpha,
		BetaPower:      beta,
		GammaPower:     gamma,
	})
}

// Flush writes buffered rows so that queries can see them.
func (r *SessionRecorder) Flush() {
	r.recorder.Flush()
}

// Summary aggregates the log of one session.
type Summary struct {
	SessionID    string  `json:"sessionId"`
	PhaseChanges int     `json:"phaseChanges"`
	AcuteEvents  int     `json:"acuteEvents"`
	Summaries    int     `json:"summaries"`
	MeanRatio    float64 `json:"meanRatio"`
	MinRatio     float64 `json:"minRatio"`
	MaxRatio     float64 `json:"maxRatio"`
}

// Summarize aggregates the rows of a session. Buffered rows are flushed
// first.
func (r *SessionRecorder) Summarize(
	ctx context.Context,
	sessionID string,
) (Summary, error) {
	r.recorder.Flush()

	s := Summary{SessionID: sessionID}
	db := r.recorder.DB()

	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+TablePhaseChange+" WHERE SessionID = ?",
		sessionID).Scan(&s.PhaseChanges)
	if err != nil {
		return Summary{}, fmt.Errorf("summarizing %s: %w", sessionID, err)
	}

	err = db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+TableAcuteEvent+" WHERE SessionID = ?",
		sessionID).Scan(&s.AcuteEvents)
	if err != nil {
		return Summary{}, fmt.Errorf("summarizing %s: %w", sessionID, err)
	}

	var mean, lo, hi sql.NullFloat64
	err = db.QueryRowContext(ctx,
		"SELECT COUNT(*), AVG(AlphaBetaRatio), MIN(AlphaBetaRatio), "+
			"MAX(AlphaBetaRatio) FROM "+TableSampleSummary+
			" WHERE SessionID = ?",
		sessionID).Scan(&s.Summaries, &mean, &lo, &hi)
	if err != nil {
		return Summary{}, fmt.Errorf("summarizing %s: %w", sessionID, err)
	}

	s.MeanRatio, s.MinRatio, s.MaxRatio = mean.Float64, lo.Float64, hi.Float64

	return s, nil
}
