// Package retrieve implements the "retrieve" sub-command: copy (or
// symlink) a product's bytes out to a target directory.
package retrieve

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stcorp/muninn/internal/cmd/archiveopen"
	"github.com/urfave/cli/v3"
)

// Command returns the retrieve sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:      "retrieve",
		Usage:     "Copy or symlink a product's bytes out to a target directory",
		ArgsUsage: "UUID",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "archive",
				Sources:  cli.EnvVars("MUNINN_ARCHIVE"),
				Usage:    "Archive id or configuration file path",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "target-dir",
				Required: true,
			},
			&cli.BoolFlag{Name: "use-symlinks"},
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

			result, rerr := a.Retrieve(ctx, id, cmd.String("target-dir"), cmd.Bool("use-symlinks"))
			if rerr != nil {
				return rerr
			}
			fmt.Fprintln(cmd.Writer, strings.Join(result.Paths, "\n"))
			return nil
		},
	}
}
