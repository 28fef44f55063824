// Package update implements the "update" sub-command: patch a product's
// namespace properties, or rebuild them from scratch via its product
// type's analyze.
package update

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stcorp/muninn/internal/cmd/archiveopen"
	"github.com/stcorp/muninn/internal/cmd/cliparse"
	"github.com/urfave/cli/v3"
)

// Command returns the update sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Patch or rebuild a product's namespace properties",
		ArgsUsage: "UUID",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "archive",
				Sources:  cli.EnvVars("MUNINN_ARCHIVE"),
				Usage:    "Archive id or configuration file path",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "set",
				Usage: "namespace.field=value; repeatable",
			},
			&cli.BoolFlag{
				Name:  "create-namespaces",
				Usage: "Create namespace rows that don't exist yet instead of requiring them present",
			},
			&cli.BoolFlag{
				Name:  "rebuild",
				Usage: "Re-derive every namespace's properties from the product type plugin's analyze, ignoring --set",
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

			if cmd.Bool("rebuild") {
				return a.RebuildProperties(ctx, id)
			}

			assignments := cmd.StringSlice("set")
			if len(assignments) == 0 {
				return fmt.Errorf("update requires at least one --set assignment, or --rebuild")
			}
			patch, perr2 := cliparse.Properties(assignments)
			if perr2 != nil {
				return perr2
			}
			return a.UpdateProperties(ctx, id, patch, cmd.Bool("create-namespaces"))
		},
	}
}
