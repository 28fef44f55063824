package archive

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/metrics"
	"github.com/stcorp/muninn/internal/properties"
	"github.com/stcorp/muninn/internal/values"
)

// Attach binds bytes already sitting outside the archive to an existing
// catalogue row that has none yet — the inverse of Strip (spec §4.8). The
// row is located by (product_type, physical_name); attaching when it
// already has bytes is a state error.
func (a *Archive) Attach(ctx context.Context, req AttachRequest) (err apperrors.Error) {
	defer metrics.Track("attach")(&err)
	rows, serr := a.db.Search(ctx, productTypePhysicalNameFilter(req.ProductType, req.PhysicalName), nil, 1, nil)
	if serr != nil {
		return serr
	}
	if len(rows) == 0 {
		return apperrors.ErrNotFound.Msg("no product matches that product_type and physical_name")
	}
	snap, perr := rowToSnapshot(rows[0])
	if perr != nil {
		return perr
	}
	if snap.ArchivePath != nil {
		return apperrors.ErrState.Msg("product already has bytes attached; strip first")
	}

	pt, pterr := a.reg.ProductType(req.ProductType)
	if pterr != nil {
		return pterr
	}

	written, werr := a.store.Put(ctx, req.Paths, req.ArchivePath, req.PhysicalName, req.UseSymlinks)
	if werr != nil {
		return werr
	}
	if !req.Force && snap.Size != nil && *snap.Size != written {
		return ErrArchive.Msg("attached bytes size does not match the catalogue row's recorded size")
	}

	fields := map[string]values.Value{
		"active":       values.NewBoolean(true),
		"archive_date": values.NewTimestamp(time.Now()),
		"archive_path": values.NewText(req.ArchivePath),
		"size":         values.NewLong64(written),
	}
	if algo, enabled := hashAlgorithmFor(pt.HashType); enabled {
		digest, herr := a.store.Hash(ctx, req.ArchivePath, req.PhysicalName, algo)
		if herr != nil {
			return herr
		}
		if req.VerifyHash && snap.Hash != nil && *snap.Hash != values.FormatHash(string(algo), digest) {
			return ErrArchive.Msg("attached bytes hash does not match the catalogue row's recorded hash")
		}
		fields["hash"] = values.NewText(values.FormatHash(string(algo), digest))
	}
	if _, err := a.db.Update(ctx, "core", fields, uuidFilter(snap.UUID)); err != nil {
		return err
	}

	return a.reg.RunPostIngestHooks(ctx, pt, snap.UUID.String(), nil)
}

// Pull fetches a product's bytes from its registered remote_url through
// whichever RemoteBackend recognizes that URL scheme, then writes them into
// storage exactly as Ingest does, before flipping the row active.
func (a *Archive) Pull(ctx context.Context, id uuid.UUID) (err apperrors.Error) {
	defer metrics.Track("pull")(&err)
	snap, found, err := fetchCore(ctx, a.db, id)
	if err != nil {
		return err
	}
	if !found {
		return apperrors.ErrNotFound.Msg("no product with that uuid")
	}
	if snap.RemoteURL == nil {
		return ErrArchive.Msg("product has no remote_url to pull from")
	}
	if snap.ArchivePath != nil {
		return apperrors.ErrConflict.Msg("product already has bytes; strip first")
	}

	remote, rerr := a.reg.SelectRemoteBackend(*snap.RemoteURL)
	if rerr != nil {
		return rerr
	}

	ws, wserr := a.store.TempWorkspace(ctx)
	if wserr != nil {
		return wserr
	}
	defer ws.Close()

	pt, ptErr := a.reg.ProductType(snap.ProductType)
	if ptErr != nil {
		return ptErr
	}

	// The row predates any local bytes, so there is no archive_path to
	// reuse; the plug-in derives one the same way ingest would, from an
	// empty properties container (pulled products don't re-run analyze).
	archivePath, aerr := pt.Plugin.ArchivePath(ctx, properties.New())
	if aerr != nil {
		return aerr
	}

	paths, perr := remote.Pull(ctx, *snap.RemoteURL, snap.PhysicalName, ws.Dir())
	if perr != nil {
		return perr
	}

	written, werr := a.store.Put(ctx, paths, archivePath, snap.PhysicalName, false)
	if werr != nil {
		return werr
	}

	fields := map[string]values.Value{
		"active":       values.NewBoolean(true),
		"archive_date": values.NewTimestamp(time.Now()),
		"archive_path": values.NewText(archivePath),
		"size":         values.NewLong64(written),
	}
	if algo, enabled := hashAlgorithmFor(pt.HashType); enabled {
		digest, herr := a.store.Hash(ctx, archivePath, snap.PhysicalName, algo)
		if herr != nil {
			return herr
		}
		fields["hash"] = values.NewText(values.FormatHash(string(algo), digest))
	}
	if _, err := a.db.Update(ctx, "core", fields, uuidFilter(id)); err != nil {
		return err
	}

	return a.reg.RunPostPullHooks(ctx, pt, id.String(), nil)
}
