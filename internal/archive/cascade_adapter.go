package archive

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/cascade"
	"github.com/stcorp/muninn/internal/registry"
)

// cascadeGraph adapts the database backend and plug-in registry to the
// read side cascade.Engine needs, so the engine never imports dbbackend or
// registry directly.
type cascadeGraph struct {
	a *Archive
}

func (g *cascadeGraph) SourcesOf(ctx context.Context, id uuid.UUID) ([]uuid.UUID, apperrors.Error) {
	return g.a.db.SourcesOf(ctx, id)
}

func (g *cascadeGraph) DerivedOf(ctx context.Context, id uuid.UUID) ([]uuid.UUID, apperrors.Error) {
	return g.a.db.DerivedOf(ctx, id)
}

func (g *cascadeGraph) ProductStatus(ctx context.Context, id uuid.UUID) (cascade.ProductStatus, bool, apperrors.Error) {
	snap, found, err := fetchCore(ctx, g.a.db, id)
	if err != nil {
		return 0, false, err
	}
	if !found {
		return 0, false, nil
	}
	if snap.ArchivePath == nil {
		return cascade.StatusStripped, true, nil
	}
	return cascade.StatusActive, true, nil
}

func (g *cascadeGraph) CascadeRuleOf(ctx context.Context, id uuid.UUID) (registry.CascadeRule, apperrors.Error) {
	snap, found, err := fetchCore(ctx, g.a.db, id)
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrArchive.Msg("cannot read cascade rule of a removed product")
	}
	pt, perr := g.a.reg.ProductType(snap.ProductType)
	if perr != nil {
		return "", perr
	}
	return pt.CascadeRule, nil
}

// SourcesLastTouched reports the latest metadata_date among ids, or the
// current time for any id whose row no longer exists. The catalogue keeps
// no record of when a product was stripped or removed, and strip does not
// update metadata_date, so for a stripped source this is the time of its
// last metadata write, not the time of the strip.
func (g *cascadeGraph) SourcesLastTouched(ctx context.Context, ids []uuid.UUID) (time.Time, apperrors.Error) {
	var latest time.Time
	for _, id := range ids {
		snap, found, err := fetchCore(ctx, g.a.db, id)
		if err != nil {
			return time.Time{}, err
		}
		var t time.Time
		if !found {
			// The row is gone; metadata_date isn't readable any more, so
			// fall back to now, the most conservative choice (it defers
			// rather than prematurely cascades past an unreadable source).
			t = time.Now()
		} else {
			t = snap.MetadataDate
		}
		if t.After(latest) {
			latest = t
		}
	}
	return latest, nil
}

// cascadeActions adapts Archive's own strip/remove to cascade.Actions, so
// cascade-driven teardown runs the identical bytes-and-hook path as a
// caller-invoked strip/remove (spec §4.9). The inner calls go to
// stripOne/removeOne, which never run the cascade engine themselves: the
// engine is already driving the propagation loop, so a nested cascade pass
// would duplicate work. removeOne is told the call is cascade-originated.
type cascadeActions struct {
	a *Archive
}

func (c *cascadeActions) Strip(ctx context.Context, id uuid.UUID) apperrors.Error {
	return c.a.stripOne(ctx, id)
}

func (c *cascadeActions) Remove(ctx context.Context, id uuid.UUID) apperrors.Error {
	return c.a.removeOne(ctx, id, true)
}
