// Package archive implements the archive orchestrator (spec §4.8): it
// composes the schema/property/expression layers with the database and
// storage backends and the plug-in registry to implement the catalogue
// operations — ingest, attach, pull, strip, remove, retrieve, export, tag,
// link, update/rebuild properties, summary, and search — enforcing the
// invariants, cascade semantics, and hook ordering those operations owe
// the rest of the system.
package archive

import (
	"context"
	"time"

	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/cascade"
	"github.com/stcorp/muninn/internal/dbbackend"
	"github.com/stcorp/muninn/internal/registry"
	"github.com/stcorp/muninn/internal/schema"
	"github.com/stcorp/muninn/internal/storage"
)

// ErrArchive is the root of every error the orchestrator itself raises
// (as opposed to errors bubbling up from the backends or registry it
// drives).
var ErrArchive apperrors.Error = apperrors.ErrState.Msg("archive error")

// Config holds the archive-level knobs from the "[archive]" configuration
// section that the orchestrator itself consults (spec §6).
type Config struct {
	MaxCascadeCycles   int
	CascadeGracePeriod time.Duration
}

// DefaultConfig matches the spec's documented defaults.
func DefaultConfig() Config {
	return Config{MaxCascadeCycles: 25, CascadeGracePeriod: 0}
}

// Archive is one open archive handle: a database backend, a storage
// backend, a plug-in registry, and the cascade engine built over them. A
// handle's database backend draws its connections from a pool (see
// dbbackend.Backend), not from a single connection. A handle is not safe
// for concurrent use by multiple goroutines without external
// synchronization, matching the "library used by one process at a time
// per handle" concurrency model.
type Archive struct {
	db      dbbackend.Backend
	store   storage.Backend
	reg     *registry.Registry
	cascade *cascade.Engine
	cfg     Config
}

// Open wires a database backend, a storage backend, and a plug-in registry
// into one archive handle, backing the cascade engine with the same
// db/store pairing the rest of the orchestrator uses.
func Open(db dbbackend.Backend, store storage.Backend, reg *registry.Registry, cfg Config) *Archive {
	if cfg.MaxCascadeCycles <= 0 {
		cfg.MaxCascadeCycles = 25
	}
	a := &Archive{db: db, store: store, reg: reg, cfg: cfg}
	a.cascade = cascade.New(&cascadeGraph{a: a}, &cascadeActions{a: a}, cascade.Config{
		MaxCycles:   cfg.MaxCascadeCycles,
		GracePeriod: cfg.CascadeGracePeriod,
	})
	return a
}

// Prepare creates the catalogue's persisted layout (core/tag/link tables
// plus one table per registered namespace) and readies the storage root.
func (a *Archive) Prepare(ctx context.Context) apperrors.Error {
	var namespaces []schema.Namespace
	for _, name := range a.reg.Schemas().Names() {
		ns, ok := a.reg.Schemas().Lookup(name)
		if !ok {
			continue
		}
		namespaces = append(namespaces, ns)
	}
	if err := a.db.Prepare(ctx, dbbackend.Schema{Namespaces: namespaces}); err != nil {
		return err
	}
	return a.store.Prepare(ctx)
}

// Destroy tears down the catalogue tables and the storage root. Intended
// for test archives and decommissioning, not routine operation.
func (a *Archive) Destroy(ctx context.Context) apperrors.Error {
	if err := a.db.Destroy(ctx); err != nil {
		return err
	}
	return a.store.Destroy(ctx)
}

// Schemas exposes the namespace schema registry so callers that need to
// parse and analyze filter expressions (search/summary/count) ahead of a
// call into the orchestrator can resolve field references the same way
// the orchestrator itself does.
func (a *Archive) Schemas() *schema.Registry { return a.reg.Schemas() }

// ProductTypes lists the names of every product type plugin the registry
// has loaded, for an "info" style caller.
func (a *Archive) ProductTypes() []string {
	return a.reg.ProductTypeNames()
}
