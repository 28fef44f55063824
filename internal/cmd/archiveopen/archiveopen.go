// Package archiveopen turns a loaded config.Config into an open
// *archive.Archive: selecting the configured database and storage
// backends, registering the remote backends and the built-in generic
// product type plugin, and handing back a ready handle plus a closer.
//
// This is the one piece of config-to-backend wiring the reference CLI
// (cmd/muninn) owns; any other embedder of internal/archive is expected to
// do the equivalent wiring itself, typically registering its own
// registry.ProductTypePlugin implementations instead of the generic
// fallback this package installs.
package archiveopen

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/archive"
	"github.com/stcorp/muninn/internal/config"
	"github.com/stcorp/muninn/internal/dbbackend"
	"github.com/stcorp/muninn/internal/genericproduct"
	"github.com/stcorp/muninn/internal/registry"
	"github.com/stcorp/muninn/internal/remotehttp"
	"github.com/stcorp/muninn/internal/storage"
	"github.com/stcorp/muninn/internal/storage/localfs"
	"github.com/stcorp/muninn/internal/storage/nonestore"
	"github.com/stcorp/muninn/internal/storage/s3store"
	"github.com/stcorp/muninn/internal/storage/swiftstore"
)

// ErrArchiveOpen is the root of every error this package raises directly
// (as opposed to errors bubbling up from a backend constructor).
var ErrArchiveOpen apperrors.Error = apperrors.ErrConfig.Msg("archive open error")

// Open builds the database and storage backends cfg selects, wires them
// and a fresh plug-in registry into an archive.Archive, and returns a
// closer the caller should defer. cfg.Archive.ProductTypeExtensions names
// the product types a real deployment would back with format-specific
// plug-ins; the reference CLI has no dynamic-loading mechanism for those,
// so each name is registered against the built-in generic plugin instead,
// logged once so an operator can see the fallback is in effect.
func Open(ctx context.Context, cfg *config.Config) (*archive.Archive, func() error, apperrors.Error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	reg := registry.New()
	for _, pt := range cfg.Archive.ProductTypeExtensions {
		log.Warn().Str("product_type", pt).Msg("no format-specific plugin is linked in; registering the generic fallback plugin")
		if rerr := reg.RegisterProductType(registry.ProductType{
			Name:   pt,
			Plugin: genericproduct.New(pt),
		}); rerr != nil {
			return nil, nil, rerr
		}
	}
	reg.RegisterRemoteBackend(remotehttp.New())

	a := archive.Open(db, store, reg, archive.Config{
		MaxCascadeCycles:   cfg.Archive.MaxCascadeCycles,
		CascadeGracePeriod: cfg.Archive.CascadeGracePeriod,
	})
	// dbbackend.Backend has no Close in its contract (each backend manages
	// its own connection lifetime), so there is nothing for a thin CLI
	// invocation to release beyond process exit.
	closer := func() error { return nil }
	return a, closer, nil
}

// FromID loads the configuration file idOrPath names (spec.md §6's
// MUNINN_CONFIG_PATH search rules, via config.Load) and opens it, the one
// call every cmd/muninn sub-command makes before touching the archive.
func FromID(ctx context.Context, idOrPath string) (*archive.Archive, func() error, apperrors.Error) {
	cfg, err := config.Load(idOrPath)
	if err != nil {
		return nil, nil, err
	}
	return Open(ctx, cfg)
}

func openDatabase(ctx context.Context, cfg *config.Config) (dbbackend.Backend, apperrors.Error) {
	switch cfg.Archive.Database {
	case "postgresql":
		if cfg.Postgres == nil {
			return nil, ErrArchiveOpen.Msg("database is postgresql but no [postgresql] section is configured")
		}
		return dbbackend.NewPostgres(ctx, cfg.Postgres.ConnectionString, cfg.Postgres.TablePrefix)
	case "sqlite":
		if cfg.SQLite == nil {
			return nil, ErrArchiveOpen.Msg("database is sqlite but no [sqlite] section is configured")
		}
		return dbbackend.NewSQLite(cfg.SQLite.ConnectionString, cfg.SQLite.ModSpatialitePath, cfg.SQLite.TablePrefix)
	default:
		return nil, ErrArchiveOpen.Msg("unknown database backend " + cfg.Archive.Database)
	}
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Backend, apperrors.Error) {
	switch cfg.Archive.Storage {
	case "fs":
		if cfg.FS == nil {
			return nil, ErrArchiveOpen.Msg("storage is fs but no [fs] section is configured")
		}
		return localfs.New(cfg.FS.Root, cfg.FS.UseSymlinks), nil
	case "s3":
		if cfg.S3 == nil {
			return nil, ErrArchiveOpen.Msg("storage is s3 but no [s3] section is configured")
		}
		return s3store.New(ctx, *cfg.S3)
	case "swift":
		if cfg.Swift == nil {
			return nil, ErrArchiveOpen.Msg("storage is swift but no [swift] section is configured")
		}
		return swiftstore.New(*cfg.Swift), nil
	case "none":
		return nonestore.New(), nil
	default:
		return nil, ErrArchiveOpen.Msg("unknown storage backend " + cfg.Archive.Storage)
	}
}
