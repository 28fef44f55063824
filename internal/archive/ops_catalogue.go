package archive

import (
	"context"

	"github.com/google/uuid"
	"github.com/stcorp/muninn/internal/apperrors"
)

// Tag attaches a string label to a product; tagging is idempotent and an
// empty tag is rejected.
func (a *Archive) Tag(ctx context.Context, id uuid.UUID, tag string) apperrors.Error {
	if tag == "" {
		return ErrArchive.Msg("tag must not be empty")
	}
	return a.db.Tag(ctx, id, tag)
}

// Untag removes a tag; untagging a tag the product doesn't carry is a
// no-op, not an error.
func (a *Archive) Untag(ctx context.Context, id uuid.UUID, tag string) apperrors.Error {
	return a.db.Untag(ctx, id, tag)
}

// ListTags returns every tag currently attached to a product.
func (a *Archive) ListTags(ctx context.Context, id uuid.UUID) ([]string, apperrors.Error) {
	return a.db.ListTags(ctx, id)
}

// Link records that id derives from sourceID, the edge the cascade engine
// walks (spec §4.9). Linking is idempotent; a product linking to itself is
// rejected.
func (a *Archive) Link(ctx context.Context, id, sourceID uuid.UUID) apperrors.Error {
	if id == sourceID {
		return ErrArchive.Msg("a product cannot link to itself")
	}
	return a.db.Link(ctx, id, sourceID)
}

// Unlink removes a derivation edge; unlinking an edge that doesn't exist is
// a no-op.
func (a *Archive) Unlink(ctx context.Context, id, sourceID uuid.UUID) apperrors.Error {
	return a.db.Unlink(ctx, id, sourceID)
}

// DerivedOf returns the products that declare id as one of their sources.
func (a *Archive) DerivedOf(ctx context.Context, id uuid.UUID) ([]uuid.UUID, apperrors.Error) {
	return a.db.DerivedOf(ctx, id)
}

// SourcesOf returns the products id declares as its sources.
func (a *Archive) SourcesOf(ctx context.Context, id uuid.UUID) ([]uuid.UUID, apperrors.Error) {
	return a.db.SourcesOf(ctx, id)
}
