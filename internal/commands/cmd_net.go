package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/errq/internal/errq"
	"github.com/hay-kot/errq/internal/netmon"
)

type NetCmd struct {
	flags *Flags
	app   *errq.App

	// flags
	host  string
	watch bool
}

// NewNetCmd creates a new net command
func NewNetCmd(flags *Flags, app *errq.App) *NetCmd {
	return &NetCmd{flags: flags, app: app}
}

// Register adds the net command to the application
func (cmd *NetCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "net",
		Usage:     "Probe connectivity",
		UsageText: "errq net [--host host:port] [--watch]",
		Description: `Dials the configured probe host and prints the reachability flags and
their classification (unreachable, wired or cellular).

Use --watch to keep probing at netmon.interval and print every change.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "host",
				Usage:       "host:port to probe (defaults to netmon.host)",
				Destination: &cmd.host,
			},
			&cli.BoolFlag{
				Name:        "watch",
				Aliases:     []string{"w"},
				Usage:       "keep probing and print changes",
				Destination: &cmd.watch,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *NetCmd) run(ctx context.Context, c *cli.Command) error {
	if cmd.host != "" {
		cmd.app.Config.Netmon.Host = cmd.host
	}

	out := c.Root().Writer
	mon := cmd.app.NewMonitor(ctx)

	status, flags := mon.Status()
	_, _ = fmt.Fprintf(out, "%s\t%s\tflags=%s\n", cmd.app.Config.Netmon.Host, status, flags)

	if !cmd.watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mon.OnChange(func(s netmon.Status) {
		_, f := mon.Status()
		_, _ = fmt.Fprintf(out, "%s\t%s\tflags=%s\n", time.Now().Format(time.TimeOnly), s, f)
	})
	mon.Run(ctx, cmd.app.Config.Netmon.Interval)
	return nil
}
