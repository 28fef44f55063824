// Package info implements the "info" sub-command: print an archive's
// configured backends and registered product types.
package info

import (
	"context"
	"fmt"
	"strings"

	"github.com/stcorp/muninn/internal/cmd/archiveopen"
	"github.com/stcorp/muninn/internal/config"
	"github.com/urfave/cli/v3"
)

// Command returns the info sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Print an archive's configured backends and registered product types",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "archive",
				Sources:  cli.EnvVars("MUNINN_ARCHIVE"),
				Usage:    "Archive id or configuration file path",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.String("archive")
			cfg, err := config.Load(id)
			if err != nil {
				return err
			}
			a, closer, err := archiveopen.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer closer()

			fmt.Fprintf(cmd.Writer, "database: %s\n", cfg.Archive.Database)
			fmt.Fprintf(cmd.Writer, "storage: %s\n", cfg.Archive.Storage)
			fmt.Fprintf(cmd.Writer, "max_cascade_cycles: %d\n", cfg.Archive.MaxCascadeCycles)
			fmt.Fprintf(cmd.Writer, "cascade_grace_period: %s\n", cfg.Archive.CascadeGracePeriod)
			fmt.Fprintf(cmd.Writer, "product_types: %s\n", strings.Join(a.ProductTypes(), ", "))
			return nil
		},
	}
}
