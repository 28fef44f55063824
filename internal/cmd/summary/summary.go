// Package summary implements the "summary" sub-command: grouped
// aggregates over the catalogue.
package summary

import (
	"context"
	"fmt"

	"github.com/stcorp/muninn/internal/cmd/archiveopen"
	"github.com/stcorp/muninn/internal/cmd/cliformat"
	"github.com/stcorp/muninn/internal/cmd/cliparse"
	"github.com/stcorp/muninn/internal/dbbackend"
	"github.com/urfave/cli/v3"
)

// Command returns the summary sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Compute grouped aggregates over the catalogue",
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
				Name:  "group-by",
				Usage: "field or field.bin (e.g. archive_date.year); repeatable",
			},
			&cli.BoolFlag{
				Name:  "group-by-tag",
				Usage: "Also group by tag",
			},
			&cli.StringSliceFlag{
				Name:  "aggregate",
				Usage: "func:field:alias (e.g. max:size:max_size), or validity_duration:alias; repeatable",
			},
			&cli.StringFlag{
				Name:  "having",
				Usage: "HAVING filter expression; names resolve against the catalogue schema, so aggregate aliases are rejected",
			},
			&cli.StringSliceFlag{
				Name:  "order-by",
				Usage: "field or field:desc; repeatable",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, closer, err := archiveopen.FromID(ctx, cmd.String("archive"))
			if err != nil {
				return err
			}
			defer closer()

			filter, ferr := cliparse.Filter(cmd.String("filter"), a.Schemas())
			if ferr != nil {
				return ferr
			}
			having, herr := cliparse.Filter(cmd.String("having"), a.Schemas())
			if herr != nil {
				return herr
			}
			aggregates, aerr := cliparse.Aggregates(cmd.StringSlice("aggregate"))
			if aerr != nil {
				return aerr
			}
			orderBy, oerr := cliparse.OrderTerms(cmd.StringSlice("order-by"))
			if oerr != nil {
				return oerr
			}

			rows, serr := a.Summary(ctx, dbbackend.SummaryRequest{
				Filter:     filter,
				Aggregates: aggregates,
				GroupBy:    cliparse.GroupByKeys(cmd.StringSlice("group-by")),
				GroupByTag: cmd.Bool("group-by-tag"),
				Having:     having,
				OrderBy:    orderBy,
			})
			if serr != nil {
				return serr
			}
			fmt.Fprintln(cmd.Writer, cliformat.Rows(rows))
			return nil
		},
	}
}
