// Package attach implements the "attach" sub-command: bind bytes already
// sitting outside the archive to an existing catalogue row that has none
// yet.
package attach

import (
	"context"
	"fmt"

	"github.com/stcorp/muninn/internal/archive"
	"github.com/stcorp/muninn/internal/cmd/archiveopen"
	"github.com/urfave/cli/v3"
)

// Command returns the attach sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:      "attach",
		Usage:     "Attach bytes to an existing catalogue row with none yet",
		ArgsUsage: "PATH [PATH...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "archive",
				Sources:  cli.EnvVars("MUNINN_ARCHIVE"),
				Usage:    "Archive id or configuration file path",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "product-type",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "physical-name",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "archive-path",
				Required: true,
				Usage:    "Storage directory the bytes are placed under",
			},
			&cli.BoolFlag{Name: "use-symlinks"},
			&cli.BoolFlag{Name: "verify-hash"},
			&cli.BoolFlag{Name: "force", Usage: "Skip the default size-equality check"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				return fmt.Errorf("attach requires at least one source path")
			}

			a, closer, err := archiveopen.FromID(ctx, cmd.String("archive"))
			if err != nil {
				return err
			}
			defer closer()

			return a.Attach(ctx, archive.AttachRequest{
				ProductType:  cmd.String("product-type"),
				PhysicalName: cmd.String("physical-name"),
				ArchivePath:  cmd.String("archive-path"),
				Paths:        paths,
				UseSymlinks:  cmd.Bool("use-symlinks"),
				VerifyHash:   cmd.Bool("verify-hash"),
				Force:        cmd.Bool("force"),
			})
		},
	}
}
