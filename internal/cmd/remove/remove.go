// Package remove implements the "remove" sub-command: delete a product's
// catalogue row and bytes, cascading to linked products per their product
// type's cascade rule.
package remove

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stcorp/muninn/internal/cmd/archiveopen"
	"github.com/stcorp/muninn/internal/cmd/cliformat"
	"github.com/urfave/cli/v3"
)

// Command returns the remove sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Usage:     "Delete a product's catalogue row and bytes",
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

			result, rerr := a.Remove(ctx, id)
			if rerr != nil {
				return rerr
			}
			fmt.Fprintln(cmd.Writer, cliformat.CascadeResult(result))
			return nil
		},
	}
}
