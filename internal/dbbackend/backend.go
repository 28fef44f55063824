package dbbackend

import (
	"context"

	"github.com/google/uuid"
	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/expr"
	"github.com/stcorp/muninn/internal/values"
)

// Backend is the database backend contract the archive orchestrator drives
// (spec §4.5). Both concrete backends draw connections from a pool (pgxpool
// for postgres, database/sql for sqlite) with the pool's default size
// limits, so a Backend is not limited to one connection, and idle
// connections stay open between archive-level operations. The postgres
// pool connects on first use; the sqlite backend opens a connection when
// it is constructed.
type Backend interface {
	Prepare(ctx context.Context, schema Schema) apperrors.Error
	Destroy(ctx context.Context) apperrors.Error

	// WithTransaction runs fn within a single transaction, committing on a
	// nil return and rolling back otherwise.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) apperrors.Error) apperrors.Error

	InsertCore(ctx context.Context, row CoreRow) apperrors.Error
	InsertNamespace(ctx context.Context, namespace string, id uuid.UUID, fields map[string]values.Value) apperrors.Error
	Update(ctx context.Context, namespace string, fields map[string]values.Value, where expr.Node) (int64, apperrors.Error)
	Delete(ctx context.Context, where expr.Node) (int64, apperrors.Error)

	Search(ctx context.Context, filter expr.Node, orderBy []OrderTerm, limit int, projection []string) ([]Row, apperrors.Error)
	Count(ctx context.Context, filter expr.Node) (int64, apperrors.Error)
	Summary(ctx context.Context, req SummaryRequest) ([]Row, apperrors.Error)

	Link(ctx context.Context, id, sourceID uuid.UUID) apperrors.Error
	Unlink(ctx context.Context, id, sourceID uuid.UUID) apperrors.Error
	Tag(ctx context.Context, id uuid.UUID, tag string) apperrors.Error
	Untag(ctx context.Context, id uuid.UUID, tag string) apperrors.Error
	ListTags(ctx context.Context, id uuid.UUID) ([]string, apperrors.Error)
	DerivedOf(ctx context.Context, id uuid.UUID) ([]uuid.UUID, apperrors.Error)
	SourcesOf(ctx context.Context, id uuid.UUID) ([]uuid.UUID, apperrors.Error)

	// Dialect exposes the backend's SQL dialect, e.g. so the orchestrator
	// can report whether TEXT ordering is locale-independent.
	Dialect() Dialect
}
