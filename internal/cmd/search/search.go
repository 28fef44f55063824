// Package search implements the "search" sub-command.
package search

import (
	"context"
	"fmt"

	"github.com/stcorp/muninn/internal/cmd/archiveopen"
	"github.com/stcorp/muninn/internal/cmd/cliformat"
	"github.com/stcorp/muninn/internal/cmd/cliparse"
	"github.com/urfave/cli/v3"
)

// Command returns the search sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the catalogue with a filter expression",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "archive",
				Sources:  cli.EnvVars("MUNINN_ARCHIVE"),
				Usage:    "Archive id or configuration file path",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "filter",
				Usage: "Filter expression; empty matches every product",
			},
			&cli.StringSliceFlag{
				Name:  "order-by",
				Usage: "field or field:desc; repeatable",
			},
			&cli.StringSliceFlag{
				Name:  "project",
				Usage: "Field to include in output; repeatable. Omit to project every core field",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum rows to return; 0 means unbounded",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, closer, err := archiveopen.FromID(ctx, cmd.String("archive"))
			if err != nil {
				return err
			}
			defer closer()

			node, ferr := cliparse.Filter(cmd.String("filter"), a.Schemas())
			if ferr != nil {
				return ferr
			}
			orderBy, oerr := cliparse.OrderTerms(cmd.StringSlice("order-by"))
			if oerr != nil {
				return oerr
			}

			rows, serr := a.Search(ctx, node, orderBy, cmd.Int("limit"), cmd.StringSlice("project"))
			if serr != nil {
				return serr
			}
			fmt.Fprintln(cmd.Writer, cliformat.Rows(rows))
			return nil
		},
	}
}
