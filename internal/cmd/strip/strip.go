// Package strip implements the "strip" sub-command: remove a product's
// bytes from storage while keeping its catalogue row, cascading to linked
// products per their product type's cascade rule.
package strip

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stcorp/muninn/internal/cmd/archiveopen"
	"github.com/stcorp/muninn/internal/cmd/cliformat"
	"github.com/urfave/cli/v3"
)

// Command returns the strip sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:      "strip",
		Usage:     "Remove a product's bytes from storage, keeping its catalogue row",
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

			result, serr := a.Strip(ctx, id)
			if serr != nil {
				return serr
			}
			fmt.Fprintln(cmd.Writer, cliformat.CascadeResult(result))
			return nil
		},
	}
}
