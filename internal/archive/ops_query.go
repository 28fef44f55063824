package archive

import (
	"context"

	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/dbbackend"
	"github.com/stcorp/muninn/internal/expr"
	"github.com/stcorp/muninn/internal/metrics"
)

// Search runs a previously parsed and analyzed filter expression against
// the catalogue and returns the matching rows (spec §4.8); the orchestrator
// does no further interpretation of filter, leaving expression semantics
// entirely to the database backend.
func (a *Archive) Search(ctx context.Context, filter expr.Node, orderBy []dbbackend.OrderTerm, limit int, projection []string) (rows []dbbackend.Row, err apperrors.Error) {
	defer metrics.Track("search")(&err)
	rows, err = a.db.Search(ctx, filter, orderBy, limit, projection)
	return rows, err
}

// Count returns the number of products matching filter.
func (a *Archive) Count(ctx context.Context, filter expr.Node) (count int64, err apperrors.Error) {
	defer metrics.Track("count")(&err)
	count, err = a.db.Count(ctx, filter)
	return count, err
}

// Summary runs an aggregate query (group_by, group_by_tag, having,
// order_by) over the catalogue.
func (a *Archive) Summary(ctx context.Context, req dbbackend.SummaryRequest) (rows []dbbackend.Row, err apperrors.Error) {
	defer metrics.Track("summary")(&err)
	rows, err = a.db.Summary(ctx, req)
	return rows, err
}
