// Package ingest implements the "ingest" sub-command.
package ingest

import (
	"context"
	"fmt"

	"github.com/stcorp/muninn/internal/archive"
	"github.com/stcorp/muninn/internal/cmd/archiveopen"
	"github.com/stcorp/muninn/internal/cmd/cliparse"
	"github.com/urfave/cli/v3"
)

// Command returns the ingest sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Ingest one or more source files as a new product",
		ArgsUsage: "PATH [PATH...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "archive",
				Sources:  cli.EnvVars("MUNINN_ARCHIVE"),
				Usage:    "Archive id or configuration file path",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "product-type",
				Usage: "Product type; auto-identified from paths if omitted",
			},
			&cli.StringFlag{
				Name:     "product-name",
				Usage:    "Product name, unique within product-type",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "physical-name",
				Usage: "Physical name; derived from paths if omitted",
			},
			&cli.BoolFlag{
				Name:  "use-symlinks",
				Usage: "Symlink source paths into storage instead of copying",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Reuse a conflicting (type, name) reservation instead of failing",
			},
			&cli.StringSliceFlag{
				Name:  "property",
				Usage: "namespace.field=value; repeatable. Omit to derive properties via the product type plugin's analyze",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				return fmt.Errorf("ingest requires at least one source path")
			}

			a, closer, err := archiveopen.FromID(ctx, cmd.String("archive"))
			if err != nil {
				return err
			}
			defer closer()

			req := archive.IngestRequest{
				Paths:        paths,
				ProductType:  cmd.String("product-type"),
				ProductName:  cmd.String("product-name"),
				PhysicalName: cmd.String("physical-name"),
				UseSymlinks:  cmd.Bool("use-symlinks"),
				Force:        cmd.Bool("force"),
			}
			if assignments := cmd.StringSlice("property"); len(assignments) > 0 {
				props, perr := cliparse.Properties(assignments)
				if perr != nil {
					return perr
				}
				req.Properties = props
			}

			id, ierr := a.Ingest(ctx, req)
			if ierr != nil {
				return ierr
			}
			fmt.Fprintln(cmd.Writer, id)
			return nil
		},
	}
}
