package commands

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/errq/internal/errq"
	"github.com/hay-kot/errq/internal/reporter"
	"github.com/hay-kot/errq/internal/store/jsonfile"
	"github.com/hay-kot/errq/pkg/iojson"
	"github.com/hay-kot/errq/pkg/profiler"
)

type RunCmd struct {
	flags *Flags
	app   *errq.App

	// Command-specific flags
	endpoint     string
	saveInterval time.Duration
	gate         bool
	profilerPort int
}

// NewRunCmd creates a new run command
func NewRunCmd(flags *Flags, app *errq.App) *RunCmd {
	return &RunCmd{flags: flags, app: app}
}

// Register adds the run command to the application
func (cmd *RunCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "run",
		Usage:     "Deliver queued records until interrupted",
		UsageText: "errq run [options]",
		Description: `Loads the persisted queue, ingests spooled records and delivers them,
retrying failures until they succeed.

Records are POSTed as JSON to --endpoint (or delivery.endpoint); with no
endpoint they are written to the log. The queue is saved every
--save-interval and once more on SIGINT/SIGTERM.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "endpoint",
				Aliases:     []string{"e"},
				Usage:       "delivery URL (overrides delivery.endpoint)",
				Sources:     cli.EnvVars("ERRQ_ENDPOINT"),
				Destination: &cmd.endpoint,
			},
			&cli.DurationFlag{
				Name:        "save-interval",
				Usage:       "how often the queue is saved (overrides reporter.save_interval)",
				Destination: &cmd.saveInterval,
			},
			&cli.BoolFlag{
				Name:        "gate",
				Usage:       "hold deliveries while the probe host is unreachable",
				Destination: &cmd.gate,
			},
			&cli.IntFlag{
				Name:        "profiler-port",
				Usage:       "enable pprof and /debug/queue on specified port (e.g., 6060)",
				Sources:     cli.EnvVars("ERRQ_PROFILER_PORT"),
				Destination: &cmd.profilerPort,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *RunCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.app.Config
	if c.IsSet("gate") {
		cfg.Reporter.GateOnConnectivity = cmd.gate
	}
	saveInterval := cfg.Reporter.SaveInterval
	if cmd.saveInterval > 0 {
		saveInterval = cmd.saveInterval
	}

	deliver, target, err := cmd.app.Deliverer(cmd.endpoint)
	if err != nil {
		return fmt.Errorf("setup delivery: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mon := cmd.app.NewMonitor(ctx)
	go mon.Run(ctx, cfg.Netmon.Interval)

	rep := cmd.app.NewReporter(mon)

	watcher, err := jsonfile.NewInboxWatcher(cmd.app.Inbox.Dir())
	if err != nil {
		return fmt.Errorf("watch inbox: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if cmd.profilerPort > 0 {
		profServer := profiler.New(cmd.profilerPort)
		profServer.Handle("/debug/queue", queueHandler(rep))
		if err := profServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start profiler: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := profServer.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("failed to shutdown profiler server")
			}
		}()
		log.Info().
			Str("url", fmt.Sprintf("http://%s/debug/pprof/", profServer.Addr())).
			Msg("profiler endpoint available")
	}

	started := time.Now()
	if err := rep.Start(ctx, deliver); err != nil {
		return err
	}
	cmd.ingest(ctx, rep)

	checkpointDone := make(chan struct{})
	go func() {
		defer close(checkpointDone)
		reporter.Checkpoint(ctx, rep, saveInterval)
	}()

	out := c.Root().Writer
	_, _ = fmt.Fprintf(out, "delivering %d record(s) to %s (ctrl-c to stop)\n", rep.Stats().Known, target)

	// The watcher covers the common case; the ticker picks up anything it
	// missed, e.g. files written while the watch was being set up.
	poll := time.NewTicker(cfg.Reporter.IdleInterval)
	defer poll.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-watcher.Changes():
			cmd.ingest(ctx, rep)
		case <-poll.C:
			cmd.ingest(ctx, rep)
		}
	}

	<-checkpointDone
	<-rep.Done()

	stats := rep.Stats()
	if err := cmd.app.RecordRun(started, time.Now(), target, stats); err != nil {
		log.Warn().Err(err).Msg("failed to record run summary")
	}

	_, _ = fmt.Fprintf(out, "stopped: delivered %d, failed attempts %d, %d record(s) remain queued\n",
		stats.Delivered, stats.Failed, stats.Known)
	return nil
}

func (cmd *RunCmd) ingest(ctx context.Context, rep *reporter.Reporter) {
	n, err := cmd.app.Ingest(ctx, rep)
	if err != nil {
		log.Warn().Err(err).Msg("failed to ingest inbox")
		return
	}
	if n > 0 {
		log.Debug().Int("records", n).Msg("ingested inbox")
	}
}

func queueHandler(rep *reporter.Reporter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = iojson.WriteWith(w, w, rep.Stats())
	})
}
