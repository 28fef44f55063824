// Package listtags implements the "list-tags" sub-command.
package listtags

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stcorp/muninn/internal/cmd/archiveopen"
	"github.com/urfave/cli/v3"
)

// Command returns the list-tags sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:      "list-tags",
		Usage:     "List a product's tags",
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

			tags, terr := a.ListTags(ctx, id)
			if terr != nil {
				return terr
			}
			fmt.Fprintln(cmd.Writer, strings.Join(tags, "\n"))
			return nil
		},
	}
}
