package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/neurotrack/neurotrack/discovery"
	"github.com/neurotrack/neurotrack/monitoring"
	"github.com/neurotrack/neurotrack/publish"
	"github.com/neurotrack/neurotrack/realtime"
	"github.com/neurotrack/neurotrack/recording"
	"github.com/neurotrack/neurotrack/session"
	"github.com/neurotrack/neurotrack/sim"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run sessions in real time behind the web monitor.",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}

	cmd.Flags().Int("port", 8080, "port of the web monitor, 0 picks one")
	cmd.Flags().Bool("open", false, "open the monitor in a browser")
	cmd.Flags().String("mode", "",
		"start a session right away: immediate, calibrating or guided")
	cmd.Flags().Int64("seed", 1, "seed of the simulated noise")
	cmd.Flags().String("redis", "",
		"address of a Redis server to publish session events to")
	cmd.Flags().Bool("advertise", false,
		"advertise the monitor with mDNS")

	return cmd
}

func serve(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var startMode *session.Mode
	if name, _ := cmd.Flags().GetString("mode"); name != "" {
		mode, err := session.ParseMode(name)
		if err != nil {
			return err
		}

		startMode = &mode
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Progress bars and events must not reuse IDs across restarts of the
	// monitor.
	sim.UseUniqueIDGenerator()

	verbose, _ := cmd.Flags().GetBool("verbose")
	s := buildStack(cfg, verbose, cmd.ErrOrStderr())
	driver := realtime.NewDriver(s.engine, cfg.SampleInterval)

	recorder := recording.New(recording.DefaultBatchSize)
	defer recorder.DB().Close()

	execRecorder := recording.NewExecRecorder(recorder)
	execRecorder.Start()
	defer execRecorder.End()

	sessions := recording.NewSessionRecorder(recorder, cfg.SummaryInterval)
	sessions.Reader().MapTable(recording.TableExecInfo, recording.ExecInfo{})
	s.attach(sessions)
	s.attach(session.NewPhaseLogger(log.New(cmd.ErrOrStderr(), "", log.LstdFlags)))

	monitor := monitoring.NewMonitor(s.controller, driver).
		WithPortNumber(cfg.MonitorPort).
		WithDecimation(cfg.StreamDecimation).
		WithSessionRecorder(sessions)
	monitor.RegisterComponent(s.model)
	s.attach(monitor)

	if cfg.RedisAddr != "" {
		sink, err := publish.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Printf("%v; session events will not be published", err)
		} else {
			defer sink.Close()

			publisher := publish.NewPublisher(sink, cfg.RedisPrefix)
			s.attach(publisher)
			go publisher.Run(ctx)

			log.Printf("publishing session events on %s", publisher.Channel())
		}
	}

	port, err := monitor.StartServer(ctx)
	if err != nil {
		return err
	}

	if cfg.Advertise {
		advertiser := discovery.NewAdvertiser(port, version)
		if err := advertiser.Start(); err != nil {
			log.Printf("mDNS: %v", err)
		} else {
			defer advertiser.Stop()
		}
	}

	url := fmt.Sprintf("http://localhost:%d", port)
	if open, _ := cmd.Flags().GetBool("open"); open {
		if err := browser.OpenURL(url); err != nil {
			log.Printf("cannot open %s: %v", url, err)
		}
	}

	done := make(chan error, 1)
	go func() { done <- driver.Run(ctx) }()

	if startMode != nil {
		err := startSession(ctx, driver, s.controller, *startMode)
		if err != nil {
			stop()
			<-done

			return err
		}
	}

	return <-done
}

func startSession(
	ctx context.Context,
	driver *realtime.Driver,
	controller *session.Controller,
	mode session.Mode,
) error {
	var err error

	doErr := driver.Do(ctx, func() { err = controller.StartSession(mode) })
	if doErr != nil {
		return doErr
	}

	return err
}
