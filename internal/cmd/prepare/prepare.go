// Package prepare implements the "prepare" sub-command: create the
// catalogue's persisted layout and ready the storage root.
package prepare

import (
	"context"

	"github.com/stcorp/muninn/internal/cmd/archiveopen"
	"github.com/urfave/cli/v3"
)

// Command returns the prepare sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "prepare",
		Usage: "Create the catalogue tables and storage root for an archive",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "archive",
				Sources:  cli.EnvVars("MUNINN_ARCHIVE"),
				Usage:    "Archive id or configuration file path",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, closer, err := archiveopen.FromID(ctx, cmd.String("archive"))
			if err != nil {
				return err
			}
			defer closer()
			return a.Prepare(ctx)
		},
	}
}
