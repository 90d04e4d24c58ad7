package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/errq/internal/errq"
	"github.com/hay-kot/errq/pkg/iojson"
)

type StatusCmd struct {
	flags  *Flags
	app    *errq.App
	format string
}

// NewStatusCmd creates a new status command
func NewStatusCmd(flags *Flags, app *errq.App) *StatusCmd {
	return &StatusCmd{flags: flags, app: app}
}

// Register adds the status command to the application
func (cmd *StatusCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "status",
		Usage:       "Show queue sizes and the last run",
		UsageText:   "errq status [--format text|json]",
		Description: "Reports how many records are queued or spooled, the last allocated id, and the outcome of the most recent 'errq run'.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *StatusCmd) run(ctx context.Context, c *cli.Command) error {
	status, err := cmd.app.Status(ctx)
	if err != nil {
		return err
	}

	last, err := cmd.app.LastRun()
	if err != nil {
		return err
	}

	out := c.Root().Writer

	if cmd.format == "json" {
		payload := struct {
			errq.Status
			LastRun map[string]any `json:"last_run,omitempty"`
		}{Status: status}
		if !last.Empty() {
			payload.LastRun = last.ToMap()
		}
		return iojson.WriteWith(out, c.Root().ErrWriter, payload)
	}

	_, _ = fmt.Fprintf(out, "queued:   %d\n", status.Queued)
	_, _ = fmt.Fprintf(out, "spooled:  %d\n", status.Spooled)
	_, _ = fmt.Fprintf(out, "last id:  %d\n", status.LastID)

	if last.Empty() {
		_, _ = fmt.Fprintln(out, "last run: never")
		return nil
	}

	_, _ = fmt.Fprintf(out, "last run: %s (%s) via %s\n",
		last.Started().Format(time.DateTime),
		last.Stopped().Sub(last.Started()).Round(time.Second),
		last.Endpoint)
	_, _ = fmt.Fprintf(out, "          delivered %d, failed attempts %d, remaining %d\n",
		last.Delivered, last.Failed, last.Remaining)
	return nil
}
