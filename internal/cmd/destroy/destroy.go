// Package destroy implements the "destroy" sub-command: tear down the
// catalogue tables and storage root. Intended for test archives and
// decommissioning, not routine operation.
package destroy

import (
	"context"

	"github.com/stcorp/muninn/internal/cmd/archiveopen"
	"github.com/urfave/cli/v3"
)

// Command returns the destroy sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "destroy",
		Usage: "Tear down the catalogue tables and storage root for an archive",
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
			return a.Destroy(ctx)
		},
	}
}
