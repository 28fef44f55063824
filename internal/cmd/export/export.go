// Package export implements the "export" sub-command: write a product out
// in a transformed representation when its product type plugin supports
// the requested format, otherwise behaving like retrieve.
package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stcorp/muninn/internal/cmd/archiveopen"
	"github.com/urfave/cli/v3"
)

// Command returns the export sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write a product out in a transformed representation",
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
			&cli.StringFlag{
				Name:  "format",
				Usage: "Export format; behaves as retrieve when omitted",
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

			result, eerr := a.Export(ctx, id, cmd.String("format"), cmd.String("target-dir"))
			if eerr != nil {
				return eerr
			}
			fmt.Fprintln(cmd.Writer, strings.Join(result.Paths, "\n"))
			return nil
		},
	}
}
