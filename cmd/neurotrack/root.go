package main

import (
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/neurotrack/neurotrack/config"
	"github.com/neurotrack/neurotrack/eeg"
	"github.com/neurotrack/neurotrack/session"
	"github.com/neurotrack/neurotrack/sim"
)

const version = "0.3.0"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "neurotrack",
		Short: "NeuroTrack simulates EEG monitoring sessions.",
		Long: `NeuroTrack synthesizes an EEG signal, classifies the cognitive ` +
			`state it shows and runs monitoring sessions with optional ` +
			`calibration. Sessions can run headless in virtual time or in ` +
			`real time behind a web monitor.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().String("config", "",
		"YAML file with settings")
	rootCmd.PersistentFlags().String("env-file", ".env",
		"dotenv file with NEUROTRACK_* settings, skipped if missing")
	rootCmd.PersistentFlags().Bool("verbose", false,
		"log every engine event")

	rootCmd.AddCommand(
		newRunCmd(),
		newServeCmd(),
		newDiscoverCmd(),
		newConfigCmd(),
	)

	return rootCmd
}

// loadConfig reads the configuration files and applies the flags the user
// set on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")

	cfg, err := config.Load(configFile, envFile)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Lookup("seed") != nil && flags.Changed("seed") {
		cfg.Seed, _ = flags.GetInt64("seed")
	}

	if flags.Lookup("port") != nil && flags.Changed("port") {
		cfg.MonitorPort, _ = flags.GetInt("port")
	}

	if flags.Lookup("redis") != nil && flags.Changed("redis") {
		cfg.RedisAddr, _ = flags.GetString("redis")
	}

	if flags.Lookup("advertise") != nil && flags.Changed("advertise") {
		cfg.Advertise, _ = flags.GetBool("advertise")
	}

	return cfg, cfg.Validate()
}

// stack is the simulation core shared by all commands.
type stack struct {
	engine     *sim.SerialEngine
	model      *eeg.Model
	controller *session.Controller
}

func buildStack(cfg config.Config, verbose bool, logOut io.Writer) stack {
	engine := sim.NewSerialEngine()
	if verbose {
		engine.AcceptHook(sim.NewEventLogger(log.New(logOut, "", 0)))
	}

	model := eeg.MakeBuilder().
		WithSampleRate(sim.FreqFromInterval(cfg.SampleInterval)).
		WithWaveformLength(cfg.WaveformLength).
		WithRatioHistoryLength(cfg.RatioHistoryLength).
		WithSeed(cfg.Seed).
		WithSimulation(cfg.Simulation).
		WithConnectionStatus(cfg.ConnectionStatus).
		Build("NeuroTrack.Model")

	controller := session.MakeBuilder().
		WithEngine(engine).
		WithModel(model).
		WithSampleInterval(cfg.SampleInterval).
		WithCalibrationDuration(cfg.CalibrationDuration).
		WithGuidedDuration(cfg.GuidedDuration).
		Build("NeuroTrack.Session")

	return stack{engine: engine, model: model, controller: controller}
}

// attach registers a hook on both the controller and the model.
func (s stack) attach(hook sim.Hook) {
	s.controller.AcceptHook(hook)
	s.model.AcceptHook(hook)
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			out, err := cfg.Marshal()
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), string(out))

			return err
		},
	}
}
