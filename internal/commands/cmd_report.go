package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/errq/internal/core/record"
	"github.com/hay-kot/errq/internal/core/validate"
	"github.com/hay-kot/errq/internal/errq"
)

type ReportCmd struct {
	flags *Flags
	app   *errq.App

	// flags
	userID   string
	message  string
	location string
	errType  int
	code     int
}

// NewReportCmd creates a new report command
func NewReportCmd(flags *Flags, app *errq.App) *ReportCmd {
	return &ReportCmd{flags: flags, app: app}
}

// Register adds the report command to the application
func (cmd *ReportCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "report",
		Usage:     "Queue an error record",
		UsageText: "errq report --message <msg> [--user <id>] [--type N] [--code N]",
		Description: `Builds an error record and spools it for delivery.

The record gets the next persisted id. A running 'errq run' picks it up
immediately; otherwise it is delivered the next time 'errq run' starts.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "message",
				Aliases:     []string{"m"},
				Usage:       "error message",
				Required:    true,
				Destination: &cmd.message,
			},
			&cli.StringFlag{
				Name:        "user",
				Aliases:     []string{"u"},
				Usage:       "user id (defaults to config user_id)",
				Destination: &cmd.userID,
			},
			&cli.StringFlag{
				Name:        "location",
				Usage:       "source location (defaults to the errq call site)",
				Destination: &cmd.location,
			},
			&cli.IntFlag{
				Name:        "type",
				Usage:       "error type",
				Value:       record.DefaultErrorType,
				Destination: &cmd.errType,
			},
			&cli.IntFlag{
				Name:        "code",
				Usage:       "internal error code",
				Value:       record.DefaultInternalCode,
				Destination: &cmd.code,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ReportCmd) run(ctx context.Context, c *cli.Command) error {
	message := strings.TrimSpace(cmd.message)
	userID := cmd.userID
	if userID == "" {
		userID = cmd.app.Config.UserID
	}
	if err := validate.Report(userID, message); err != nil {
		return err
	}

	var rec *record.Record
	if cmd.location != "" {
		rec = cmd.app.Factory.NewAt(cmd.location, userID, message)
	} else {
		rec = cmd.app.Factory.New(userID, message)
	}
	rec.SetErrorType(cmd.errType)
	rec.SetInternalCode(cmd.code)

	if _, err := cmd.app.Submit(ctx, rec); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(c.Root().Writer, "queued record %d\n", rec.ID)
	return nil
}
