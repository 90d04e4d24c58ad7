package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/errq/internal/errq"
	"github.com/hay-kot/errq/pkg/iojson"
)

type ImportCmd struct {
	flags *Flags
	app   *errq.App

	input iojson.FileReader[[]map[string]any]
}

// NewImportCmd creates a new import command
func NewImportCmd(flags *Flags, app *errq.App) *ImportCmd {
	return &ImportCmd{flags: flags, app: app}
}

// Register adds the import command to the application
func (cmd *ImportCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "import",
		Usage:     "Queue records from a JSON array",
		UsageText: "errq import [-f file.json] < records.json",
		Description: `Reads a JSON array of record objects and spools each one for delivery.

Objects use the persisted key names (recordID, userId, message, location,
creatTime, errorType, appVersion, internalCode). Missing keys take their
defaults and a missing recordID allocates a new id. Empty objects are skipped.`,
		Flags:  []cli.Flag{cmd.input.Flag()},
		Action: cmd.run,
	})

	return app
}

func (cmd *ImportCmd) run(ctx context.Context, c *cli.Command) error {
	entries, err := cmd.input.Read()
	if err != nil {
		return err
	}

	recs := cmd.app.Factory.FromMaps(entries)
	for _, rec := range recs {
		if _, err := cmd.app.Submit(ctx, rec); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintf(c.Root().Writer, "queued %d record(s)\n", len(recs))
	return nil
}
