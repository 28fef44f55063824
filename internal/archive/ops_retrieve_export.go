package archive

import (
	"context"

	"github.com/google/uuid"
	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/registry"
)

// Retrieve copies (or symlinks) a product's bytes into targetDir. A
// product with no local bytes but a remote_url is fetched transparently
// through the same RemoteBackend Pull would use, without persisting the
// fetched copy into storage.
func (a *Archive) Retrieve(ctx context.Context, id uuid.UUID, targetDir string, useSymlinks bool) (RetrieveResult, apperrors.Error) {
	snap, found, err := fetchCore(ctx, a.db, id)
	if err != nil {
		return RetrieveResult{}, err
	}
	if !found {
		return RetrieveResult{}, apperrors.ErrNotFound.Msg("no product with that uuid")
	}

	if snap.ArchivePath != nil {
		paths, rerr := a.store.Retrieve(ctx, *snap.ArchivePath, snap.PhysicalName, targetDir, useSymlinks)
		if rerr != nil {
			return RetrieveResult{}, rerr
		}
		return RetrieveResult{Paths: paths}, nil
	}

	if snap.RemoteURL == nil {
		return RetrieveResult{}, ErrArchive.Msg("product has no bytes in storage and no remote_url")
	}
	remote, rerr := a.reg.SelectRemoteBackend(*snap.RemoteURL)
	if rerr != nil {
		return RetrieveResult{}, rerr
	}
	paths, perr := remote.Pull(ctx, *snap.RemoteURL, snap.PhysicalName, targetDir)
	if perr != nil {
		return RetrieveResult{}, perr
	}
	return RetrieveResult{Paths: paths}, nil
}

// Export writes a product out in a transformed representation when its
// product type plugin implements Exporter for the requested format;
// otherwise it behaves exactly like Retrieve.
func (a *Archive) Export(ctx context.Context, id uuid.UUID, format, targetDir string) (RetrieveResult, apperrors.Error) {
	snap, found, err := fetchCore(ctx, a.db, id)
	if err != nil {
		return RetrieveResult{}, err
	}
	if !found {
		return RetrieveResult{}, apperrors.ErrNotFound.Msg("no product with that uuid")
	}
	if format == "" || snap.ArchivePath == nil {
		return a.Retrieve(ctx, id, targetDir, false)
	}

	pt, pterr := a.reg.ProductType(snap.ProductType)
	if pterr != nil {
		return RetrieveResult{}, pterr
	}
	exporter, ok := pt.Plugin.(registry.Exporter)
	if !ok {
		return a.Retrieve(ctx, id, targetDir, false)
	}

	sourcePaths, rerr := a.store.Retrieve(ctx, *snap.ArchivePath, snap.PhysicalName, targetDir, false)
	if rerr != nil {
		return RetrieveResult{}, rerr
	}
	paths, eerr := exporter.Export(ctx, format, targetDir, sourcePaths)
	if eerr != nil {
		return RetrieveResult{}, eerr
	}
	return RetrieveResult{Paths: paths}, nil
}
