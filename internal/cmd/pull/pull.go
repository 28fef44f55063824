// Package pull implements the "pull" sub-command: fetch a product's bytes
// from its registered remote_url.
package pull

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stcorp/muninn/internal/cmd/archiveopen"
	"github.com/urfave/cli/v3"
)

// Command returns the pull sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:      "pull",
		Usage:     "Fetch a product's bytes from its registered remote_url",
		ArgsUsage: "UUID",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "archive",
				Sources:  cli.EnvVars("MUNINN_ARCHIVE"),
				Usage:    "Archive id or configuration file path",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, perr := uuid.Parse(cmd.Args().First())
			if perr != nil {
				return fmt.Errorf("invalid uuid %q: %w", cmd.Args().First(), perr)
			}

			a, closer, err := archiveopen.FromID(ctx, cmd.String("archive"))
			if err != nil {
				return err
			}
			defer closer()

			return a.Pull(ctx, id)
		},
	}
}
