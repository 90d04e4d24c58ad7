package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/errq/internal/errq"
)

type PurgeCmd struct {
	flags *Flags
	app   *errq.App
	yes   bool
}

// NewPurgeCmd creates a new purge command
func NewPurgeCmd(flags *Flags, app *errq.App) *PurgeCmd {
	return &PurgeCmd{flags: flags, app: app}
}

// Register adds the purge command to the application
func (cmd *PurgeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "purge",
		Usage:       "Drop every undelivered record",
		UsageText:   "errq purge --yes",
		Description: "Removes the persisted queue, spooled records and the last run summary. The id counter is kept so ids are never reused.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "yes",
				Aliases:     []string{"y"},
				Usage:       "confirm the purge",
				Destination: &cmd.yes,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *PurgeCmd) run(ctx context.Context, c *cli.Command) error {
	if !cmd.yes {
		return fmt.Errorf("refusing to purge without --yes")
	}

	n, err := cmd.app.Purge(ctx)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(c.Root().Writer, "purged %d record(s)\n", n)
	return nil
}
