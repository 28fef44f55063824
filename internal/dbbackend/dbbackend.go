// Package dbbackend implements Muninn's database backend contract (spec
// §4.5): schema preparation, core/namespace row mutation, expression-driven
// search/count/summary, and the link/tag graph. A shared codegen layer
// lowers internal/expr ASTs to parameterized SQL against a pluggable
// Dialect; concrete backends (postgresql, sqlite+spatialite) differ in
// placeholder syntax, spatial function names, column types and DDL,
// timestamp handling, and connection setup.
package dbbackend

import (
	"github.com/stcorp/muninn/internal/apperrors"
)

// ErrBackend roots every error this package raises, wrapping
// apperrors.ErrBackend so callers can match on either.
var ErrBackend apperrors.Error = apperrors.ErrBackend.Msg("database backend error")
