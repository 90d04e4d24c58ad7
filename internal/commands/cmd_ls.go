package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/errq/internal/core/record"
	"github.com/hay-kot/errq/internal/errq"
	"github.com/hay-kot/errq/pkg/iojson"
)

type LsCmd struct {
	flags *Flags
	app   *errq.App

	// flags
	jsonOutput bool
}

// NewLsCmd creates a new ls command
func NewLsCmd(flags *Flags, app *errq.App) *LsCmd {
	return &LsCmd{flags: flags, app: app}
}

// Register adds the ls command to the application
func (cmd *LsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "ls",
		Usage:     "List undelivered records",
		UsageText: "errq ls [--json]",
		Description: `Displays every record not yet confirmed delivered: the persisted queue
first, then records spooled since the last ingest.

Use --json for one JSON object per line using the persisted key names.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *LsCmd) run(ctx context.Context, c *cli.Command) error {
	queue, spooled, err := cmd.app.Queued(ctx)
	if err != nil {
		return err
	}

	if len(queue)+len(spooled) == 0 {
		if !cmd.jsonOutput {
			fmt.Fprintf(os.Stderr, "No records queued\n")
		}
		return nil
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		for _, group := range [][]*record.Record{queue, spooled} {
			for _, rec := range group {
				if err := iojson.WriteLine(out, rec.ToMap()); err != nil {
					return fmt.Errorf("encode record: %w", err)
				}
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATE\tUSER\tTYPE\tCODE\tCREATED\tLOCATION\tMESSAGE")
	writeRows(w, "queued", queue)
	writeRows(w, "spooled", spooled)
	return w.Flush()
}

func writeRows(w *tabwriter.Writer, state string, recs []*record.Record) {
	for _, rec := range recs {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			rec.ID, state, rec.UserID, rec.ErrorType, rec.InternalCode,
			rec.CreatedTime().Format(time.DateTime), rec.Location, rec.Message)
	}
}
