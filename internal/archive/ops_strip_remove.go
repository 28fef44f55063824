package archive

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/cascade"
	"github.com/stcorp/muninn/internal/metrics"
	"github.com/stcorp/muninn/internal/values"
)

// Strip deletes a product's bytes from storage but keeps its catalogue row
// (spec §4.8/§4.9): archive_path, archive_date and hash are cleared, and
// namespace rows, tags and links survive. It then runs the cascade engine
// rooted at id, so dependents configured with a cascading rule are torn
// down in the same call.
func (a *Archive) Strip(ctx context.Context, id uuid.UUID) (result cascade.Result, err apperrors.Error) {
	defer metrics.Track("strip")(&err)
	if err = a.stripOne(ctx, id); err != nil {
		return cascade.Result{}, err
	}
	result, err = a.cascade.Run(ctx, time.Now(), []uuid.UUID{id})
	metrics.CascadeCycles.Observe(float64(result.Cycles))
	return result, err
}

// Remove deletes a product's bytes and its catalogue row entirely; the
// database's ON DELETE CASCADE takes namespace rows, tags and links with
// it. It then runs the cascade engine rooted at id.
func (a *Archive) Remove(ctx context.Context, id uuid.UUID) (result cascade.Result, err apperrors.Error) {
	defer metrics.Track("remove")(&err)
	if err = a.removeOne(ctx, id, false); err != nil {
		return cascade.Result{}, err
	}
	result, err = a.cascade.Run(ctx, time.Now(), []uuid.UUID{id})
	metrics.CascadeCycles.Observe(float64(result.Cycles))
	return result, err
}

// stripOne performs the bytes-and-row work of a strip without touching the
// cascade engine; cascadeActions.Strip calls this directly so the engine's
// own propagation loop doesn't recursively invoke itself.
func (a *Archive) stripOne(ctx context.Context, id uuid.UUID) apperrors.Error {
	snap, found, err := fetchCore(ctx, a.db, id)
	if err != nil {
		return err
	}
	if !found {
		return apperrors.ErrNotFound.Msg("no product with that uuid")
	}
	if snap.ArchivePath == nil {
		// Already stripped (or catalogue-only); nothing to do.
		return a.runPostRemoveOrNoop(ctx, snap)
	}

	if rerr := a.store.Remove(ctx, *snap.ArchivePath, snap.PhysicalName); rerr != nil {
		return rerr
	}

	fields := map[string]values.Value{
		"archive_path": values.Null(values.KindText),
		"archive_date": values.Null(values.KindTimestamp),
		"hash":         values.Null(values.KindText),
	}
	if _, err := a.db.Update(ctx, "core", fields, uuidFilter(id)); err != nil {
		return err
	}
	return a.runPostRemoveOrNoop(ctx, snap)
}

// removeOne deletes bytes (if present) and the catalogue row. cascading
// indicates the call originates from the cascade engine's own loop, purely
// informational for hook ordering today but kept distinct from a direct
// caller-invoked remove in case future hook types need to distinguish them.
func (a *Archive) removeOne(ctx context.Context, id uuid.UUID, cascading bool) apperrors.Error {
	snap, found, err := fetchCore(ctx, a.db, id)
	if err != nil {
		return err
	}
	if !found {
		return apperrors.ErrNotFound.Msg("no product with that uuid")
	}

	if snap.ArchivePath != nil {
		if rerr := a.store.Remove(ctx, *snap.ArchivePath, snap.PhysicalName); rerr != nil {
			return rerr
		}
	}

	if n, derr := a.db.Delete(ctx, uuidFilter(id)); derr != nil {
		return derr
	} else if n == 0 {
		return apperrors.ErrNotFound.Msg("no product with that uuid")
	}

	return a.runPostRemoveOrNoop(ctx, snap)
}

func (a *Archive) runPostRemoveOrNoop(ctx context.Context, snap coreSnapshot) apperrors.Error {
	pt, perr := a.reg.ProductType(snap.ProductType)
	if perr != nil {
		// An unregistered product type (e.g. from a config change since
		// ingest) has no hooks to run; that's not fatal to strip/remove.
		return nil
	}
	return a.reg.RunPostRemoveHooks(ctx, pt, snap.UUID.String(), nil)
}
