// Package untag implements the "untag" sub-command.
package untag

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stcorp/muninn/internal/cmd/archiveopen"
	"github.com/urfave/cli/v3"
)

// Command returns the untag sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:      "untag",
		Usage:     "Remove a tag from a product",
		ArgsUsage: "UUID TAG",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "archive",
				Sources:  cli.EnvVars("MUNINN_ARCHIVE"),
				Usage:    "Archive id or configuration file path",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() < 2 {
				return fmt.Errorf("untag requires a UUID and a TAG argument")
			}
			id, perr := uuid.Parse(cmd.Args().Get(0))
			if perr != nil {
				return fmt.Errorf("invalid uuid %q: %w", cmd.Args().Get(0), perr)
			}

			a, closer, err := archiveopen.FromID(ctx, cmd.String("archive"))
			if err != nil {
				return err
			}
			defer closer()

			return a.Untag(ctx, id, cmd.Args().Get(1))
		},
	}
}
