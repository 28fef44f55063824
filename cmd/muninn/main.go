// Command muninn is the catalogue archive CLI: prepare and destroy
// archives, ingest and retrieve products, search and summarize the
// catalogue, and manage tags.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/stcorp/muninn/internal/cmd/attach"
	"github.com/stcorp/muninn/internal/cmd/destroy"
	"github.com/stcorp/muninn/internal/cmd/export"
	"github.com/stcorp/muninn/internal/cmd/info"
	"github.com/stcorp/muninn/internal/cmd/ingest"
	"github.com/stcorp/muninn/internal/cmd/listtags"
	"github.com/stcorp/muninn/internal/cmd/prepare"
	"github.com/stcorp/muninn/internal/cmd/pull"
	"github.com/stcorp/muninn/internal/cmd/remove"
	"github.com/stcorp/muninn/internal/cmd/retrieve"
	"github.com/stcorp/muninn/internal/cmd/search"
	"github.com/stcorp/muninn/internal/cmd/strip"
	"github.com/stcorp/muninn/internal/cmd/summary"
	"github.com/stcorp/muninn/internal/cmd/tag"
	"github.com/stcorp/muninn/internal/cmd/untag"
	"github.com/stcorp/muninn/internal/cmd/update"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "muninn",
		Usage: "Product catalogue and archive manager",
		Commands: []*cli.Command{
			prepare.Command(),
			destroy.Command(),
			info.Command(),
			ingest.Command(),
			attach.Command(),
			pull.Command(),
			strip.Command(),
			remove.Command(),
			retrieve.Command(),
			export.Command(),
			search.Command(),
			summary.Command(),
			tag.Command(),
			untag.Command(),
			listtags.Command(),
			update.Command(),
		},
	}
	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("muninn command failed")
	}
}
