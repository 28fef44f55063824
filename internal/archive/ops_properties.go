package archive

import (
	"context"

	"github.com/google/uuid"
	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/expr"
	"github.com/stcorp/muninn/internal/properties"
)

// UpdateProperties writes a caller-supplied diff against a product's
// properties (spec §4.8): a namespace marked Removed in patch drops that
// namespace's row; createNamespaces controls whether a namespace named in
// patch but never before written for this product gets an insert instead
// of being rejected as unknown.
func (a *Archive) UpdateProperties(ctx context.Context, id uuid.UUID, patch *properties.Container, createNamespaces bool) apperrors.Error {
	if _, found, err := fetchCore(ctx, a.db, id); err != nil {
		return err
	} else if !found {
		return apperrors.ErrNotFound.Msg("no product with that uuid")
	}

	for _, ns := range patch.RawNamespaceNames() {
		raw, ok := patch.RawNamespace(ns)
		if !ok {
			continue
		}
		if raw.Removed {
			if _, err := a.db.Delete(ctx, andNode(uuidFilter(id), isDefinedNode(ns))); err != nil {
				return err
			}
			continue
		}

		fields := patch.Fields(ns)
		if len(fields) == 0 {
			continue
		}
		exists, eerr := a.namespaceRowExists(ctx, id, ns)
		if eerr != nil {
			return eerr
		}
		if !exists {
			if !createNamespaces {
				return ErrArchive.Msg("namespace " + ns + " has no existing row for this product; set create_namespaces to add one")
			}
			if err := a.db.InsertNamespace(ctx, ns, id, fields); err != nil {
				return err
			}
			continue
		}
		if _, err := a.db.Update(ctx, ns, fields, uuidFilter(id)); err != nil {
			return err
		}
	}
	return nil
}

// RebuildProperties re-runs the product type plugin's Analyze over the
// product's already-archived bytes and merges the returned fields into
// what is already stored: fields Analyze doesn't return are preserved
// (spec §4.8), since this only ever inserts or overwrites the namespace
// rows Analyze actually returned.
func (a *Archive) RebuildProperties(ctx context.Context, id uuid.UUID) apperrors.Error {
	snap, found, err := fetchCore(ctx, a.db, id)
	if err != nil {
		return err
	}
	if !found {
		return apperrors.ErrNotFound.Msg("no product with that uuid")
	}
	if snap.ArchivePath == nil {
		return ErrArchive.Msg("cannot rebuild properties of a stripped product")
	}

	pt, pterr := a.reg.ProductType(snap.ProductType)
	if pterr != nil {
		return pterr
	}

	ws, wserr := a.store.TempWorkspace(ctx)
	if wserr != nil {
		return wserr
	}
	defer ws.Close()

	paths, rerr := a.store.Retrieve(ctx, *snap.ArchivePath, snap.PhysicalName, ws.Dir(), false)
	if rerr != nil {
		return rerr
	}

	fresh, _, aerr := pt.Plugin.Analyze(ctx, paths)
	if aerr != nil {
		return aerr
	}

	for _, ns := range fresh.Namespaces() {
		fields := fresh.Fields(ns)
		if len(fields) == 0 {
			continue
		}
		exists, eerr := a.namespaceRowExists(ctx, id, ns)
		if eerr != nil {
			return eerr
		}
		if !exists {
			if err := a.db.InsertNamespace(ctx, ns, id, fields); err != nil {
				return err
			}
			continue
		}
		if _, err := a.db.Update(ctx, ns, fields, uuidFilter(id)); err != nil {
			return err
		}
	}
	return nil
}

func (a *Archive) namespaceRowExists(ctx context.Context, id uuid.UUID, ns string) (bool, apperrors.Error) {
	rows, err := a.db.Search(ctx, andNode(uuidFilter(id), isDefinedNode(ns)), nil, 1, nil)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func andNode(left, right expr.Node) expr.Node {
	return &expr.Binary{Op: expr.OpAnd, Left: left, Right: right}
}

func isDefinedNode(ns string) expr.Node {
	return &expr.FuncCall{Name: "is_defined", Args: []expr.Node{&expr.NamespaceRef{Namespace: ns}}}
}
