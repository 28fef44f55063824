package archive

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/dbbackend"
	"github.com/stcorp/muninn/internal/metrics"
	"github.com/stcorp/muninn/internal/properties"
	"github.com/stcorp/muninn/internal/registry"
	"github.com/stcorp/muninn/internal/values"
)

// Ingest implements the two-phase ingest algorithm (spec §4.8): reserve a
// catalogue row before touching bytes, move the bytes into storage, then
// flip the row active and run hooks. A failure while writing bytes leaves
// the active=false reservation in place for the caller to retry or force.
func (a *Archive) Ingest(ctx context.Context, req IngestRequest) (id uuid.UUID, err apperrors.Error) {
	defer metrics.Track("ingest")(&err)
	if len(req.Paths) == 0 {
		return uuid.UUID{}, ErrArchive.Msg("ingest requires at least one source path")
	}
	if req.ProductName == "" {
		return uuid.UUID{}, ErrArchive.Msg("ingest requires a product_name")
	}

	pt, err := a.resolveProductType(ctx, req.ProductType, req.Paths)
	if err != nil {
		return uuid.UUID{}, err
	}

	props := req.Properties
	var tags []string
	if props == nil {
		analyzed, analyzedTags, aerr := pt.Plugin.Analyze(ctx, req.Paths)
		if aerr != nil {
			return uuid.UUID{}, aerr
		}
		props = analyzed
		tags = analyzedTags
	}

	physicalName, perr := a.physicalNameFor(ctx, pt, req.Paths, props)
	if perr != nil {
		return uuid.UUID{}, perr
	}

	archivePath, aerr := pt.Plugin.ArchivePath(ctx, props)
	if aerr != nil {
		return uuid.UUID{}, aerr
	}

	if cerr := a.reserveSlot(ctx, pt.Name, req.ProductName, archivePath, physicalName, req.Force); cerr != nil {
		return uuid.UUID{}, cerr
	}

	size, serr := totalSize(req.Paths)
	if serr != nil {
		return uuid.UUID{}, ErrArchive.MsgErr("failed to size source paths", serr)
	}

	id = uuid.New()
	now := time.Now()
	row := dbbackend.CoreRow{
		UUID:          id,
		Active:        false,
		Size:          &size,
		MetadataDate:  now,
		ProductType:   pt.Name,
		ProductName:   req.ProductName,
		PhysicalName:  physicalName,
		ValidityStart: req.ValidityStart,
		ValidityStop:  req.ValidityStop,
		CreationDate:  req.CreationDate,
	}
	if v, ok := props.Get("core", "footprint"); ok && v.Kind() == values.KindGeometry {
		g := v.Geometry()
		row.Footprint = &g
	}

	if err := a.db.InsertCore(ctx, row); err != nil {
		return uuid.UUID{}, err
	}

	if err := a.writeNamespaces(ctx, id, props); err != nil {
		return uuid.UUID{}, err
	}

	written, werr := a.store.Put(ctx, req.Paths, archivePath, physicalName, req.UseSymlinks)
	if werr != nil {
		// The reservation stays active=false; the caller retries or
		// forces past it later (spec §4.8, stage (4) failure handling).
		return uuid.UUID{}, werr
	}

	var hashPtr *string
	if algo, enabled := hashAlgorithmFor(pt.HashType); enabled {
		digest, herr := a.store.Hash(ctx, archivePath, physicalName, algo)
		if herr != nil {
			return uuid.UUID{}, herr
		}
		formatted := values.FormatHash(string(algo), digest)
		hashPtr = &formatted
		if req.VerifyHash && size != written {
			return uuid.UUID{}, ErrArchive.Msg("ingest size mismatch between source and stored bytes")
		}
	}

	archiveDate := time.Now()
	fields := map[string]values.Value{
		"active":       values.NewBoolean(true),
		"archive_date": values.NewTimestamp(archiveDate),
		"archive_path": values.NewText(archivePath),
	}
	if hashPtr != nil {
		fields["hash"] = values.NewText(*hashPtr)
	}
	if _, err := a.db.Update(ctx, "core", fields, uuidFilter(id)); err != nil {
		return uuid.UUID{}, err
	}

	for _, tag := range tags {
		if err := a.db.Tag(ctx, id, tag); err != nil {
			return id, err
		}
	}

	if err := a.reg.RunPostIngestHooks(ctx, pt, id.String(), props); err != nil {
		return id, err
	}
	return id, nil
}

// CreateProperties creates a catalogue-only row (spec's "absent ->
// catalogue-only" transition): no bytes are written, and the product is
// immediately active.
func (a *Archive) CreateProperties(ctx context.Context, productType, productName, physicalName string, props *properties.Container) (uuid.UUID, apperrors.Error) {
	pt, err := a.reg.ProductType(productType)
	if err != nil {
		return uuid.UUID{}, err
	}
	if cerr := a.reserveSlot(ctx, pt.Name, productName, "", physicalName, false); cerr != nil {
		return uuid.UUID{}, cerr
	}

	id := uuid.New()
	row := dbbackend.CoreRow{
		UUID:         id,
		Active:       true,
		MetadataDate: time.Now(),
		ProductType:  pt.Name,
		ProductName:  productName,
		PhysicalName: physicalName,
	}
	if err := a.db.InsertCore(ctx, row); err != nil {
		return uuid.UUID{}, err
	}
	if props != nil {
		if err := a.writeNamespaces(ctx, id, props); err != nil {
			return uuid.UUID{}, err
		}
	}
	if err := a.reg.RunPostCreateHooks(ctx, pt, id.String(), props); err != nil {
		return id, err
	}
	return id, nil
}

// DeleteProperties removes a catalogue row without touching any bytes it
// may reference in storage, for callers who manage storage out of band.
func (a *Archive) DeleteProperties(ctx context.Context, id uuid.UUID) apperrors.Error {
	n, err := a.db.Delete(ctx, uuidFilter(id))
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrNotFound.Msg("no product with that uuid")
	}
	return nil
}

func (a *Archive) resolveProductType(ctx context.Context, productType string, paths []string) (*registry.ProductType, apperrors.Error) {
	if productType != "" {
		return a.reg.ProductType(productType)
	}
	return a.reg.IdentifyProductType(ctx, paths)
}

func (a *Archive) physicalNameFor(ctx context.Context, pt *registry.ProductType, paths []string, props *properties.Container) (string, apperrors.Error) {
	multiPart := len(paths) != 1
	if !multiPart && !pt.UseEnclosingDirectory {
		return filepath.Base(paths[0]), nil
	}
	enclosing, ok := pt.Plugin.(registry.EnclosingDirectoryPlugin)
	if !ok {
		if multiPart {
			return "", ErrArchive.Msg("product type " + pt.Name + " has multiple source paths but no enclosing-directory plugin")
		}
		return filepath.Base(paths[0]), nil
	}
	return enclosing.EnclosingDirectory(ctx, props)
}

// reserveSlot enforces the (product_type, product_name) uniqueness
// invariant, clearing a stale active=false reservation left by a prior
// failed ingest when force is set.
func (a *Archive) reserveSlot(ctx context.Context, productType, productName, archivePath, physicalName string, force bool) apperrors.Error {
	rows, err := a.db.Search(ctx, productTypeNameFilter(productType, productName), nil, 1, nil)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		snap, serr := rowToSnapshot(rows[0])
		if serr != nil {
			return serr
		}
		if snap.Active || !force {
			return apperrors.ErrConflict.Msg("a product named " + productName + " of type " + productType + " already exists")
		}
		if _, derr := a.db.Delete(ctx, uuidFilter(snap.UUID)); derr != nil {
			return derr
		}
	}
	if archivePath != "" && physicalName != "" {
		rows, err := a.db.Search(ctx, archivePathNameFilter(archivePath, physicalName), nil, 1, nil)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			snap, serr := rowToSnapshot(rows[0])
			if serr != nil {
				return serr
			}
			if snap.Active || !force {
				return apperrors.ErrConflict.Msg("archive_path/physical_name slot " + archivePath + "/" + physicalName + " is already taken")
			}
			if _, derr := a.db.Delete(ctx, uuidFilter(snap.UUID)); derr != nil {
				return derr
			}
		}
	}
	return nil
}

func (a *Archive) writeNamespaces(ctx context.Context, id uuid.UUID, props *properties.Container) apperrors.Error {
	for _, ns := range props.Namespaces() {
		if ns == "core" {
			continue
		}
		fields := props.Fields(ns)
		if len(fields) == 0 {
			continue
		}
		if err := a.db.InsertNamespace(ctx, ns, id, fields); err != nil {
			return err
		}
	}
	return nil
}

func totalSize(paths []string) (int64, error) {
	var total int64
	for _, p := range paths {
		err := filepath.Walk(p, func(_ string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				total += info.Size()
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
