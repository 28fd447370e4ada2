package main

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/neurotrack/neurotrack/eeg"
	"github.com/neurotrack/neurotrack/recording"
	"github.com/neurotrack/neurotrack/session"
	"github.com/neurotrack/neurotrack/sim"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one session in virtual time and print a summary.",
		Long: `Run starts a session in the given mode, lets it run for the ` +
			`given virtual duration, stops it and prints what happened. ` +
			`It does not wait for the wall clock.`,
		Args: cobra.NoArgs,
		RunE: runSession,
	}

	cmd.Flags().String("mode", "immediate",
		"session mode: immediate, calibrating or guided")
	cmd.Flags().Duration("duration", time.Minute,
		"virtual time the session runs before it is stopped")
	cmd.Flags().Int64("seed", 1, "seed of the simulated noise")

	return cmd
}

func runSession(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	modeName, _ := cmd.Flags().GetString("mode")
	mode, err := session.ParseMode(modeName)
	if err != nil {
		return err
	}

	duration, _ := cmd.Flags().GetDuration("duration")
	if duration <= 0 {
		return fmt.Errorf("duration must be positive, got %s", duration)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	s := buildStack(cfg, verbose, cmd.ErrOrStderr())

	recorder := recording.New(recording.DefaultBatchSize)
	defer recorder.DB().Close()

	sessions := recording.NewSessionRecorder(recorder, cfg.SummaryInterval)
	s.attach(sessions)
	s.attach(session.NewPhaseLogger(log.New(cmd.ErrOrStderr(), "", 0)))

	err = s.controller.StartSession(mode)
	if err != nil {
		return err
	}

	id := s.controller.SessionID()

	err = s.engine.RunUntil(s.engine.CurrentTime() + sim.VTime(duration))
	if err != nil {
		return err
	}

	last := s.controller.Snapshot()
	phase := s.controller.Phase()

	s.controller.StopSession(false)

	summary, err := sessions.Summarize(cmd.Context(), id)
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), mode, phase, last, summary)

	return nil
}

func printSummary(
	w io.Writer,
	mode session.Mode,
	phase session.Phase,
	last eeg.Snapshot,
	s recording.Summary,
) {
	fmt.Fprintf(w, "session        %s\n", s.SessionID)
	fmt.Fprintf(w, "mode           %s\n", mode)
	fmt.Fprintf(w, "final phase    %s\n", phase)
	fmt.Fprintf(w, "session time   %s\n", last.SessionTime())
	fmt.Fprintf(w, "final state    %s (%.2f)\n",
		last.CognitiveState, last.AlphaBetaRatio)
	fmt.Fprintf(w, "phase changes  %d\n", s.PhaseChanges)
	fmt.Fprintf(w, "acute events   %d\n", s.AcuteEvents)
	fmt.Fprintf(w, "summaries      %d\n", s.Summaries)

	if s.Summaries > 0 {
		fmt.Fprintf(w, "alpha/beta     mean %.2f, min %.2f, max %.2f\n",
			s.MeanRatio, s.MinRatio, s.MaxRatio)
	}
}
