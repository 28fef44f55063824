package archive

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/dbbackend"
	"github.com/stcorp/muninn/internal/expr"
	"github.com/stcorp/muninn/internal/storage"
	"github.com/stcorp/muninn/internal/values"
)

// fakeDialect is the minimal dbbackend.Dialect every test backend reports.
type fakeDialect struct{}

func (fakeDialect) Name() string                   { return "fake" }
func (fakeDialect) Placeholder(n int) string       { return fmt.Sprintf("$%d", n) }
func (fakeDialect) GeomFromText(wkt string) string { return wkt }
func (fakeDialect) Covers(a, b string) string      { return a + " COVERS " + b }
func (fakeDialect) Intersects(a, b string) string  { return a + " && " + b }
func (fakeDialect) Distance(a, b string) string    { return "DIST(" + a + "," + b + ")" }

type fakeProductRow struct {
	core       dbbackend.CoreRow
	namespaces map[string]map[string]values.Value
	tags       map[string]bool
	sources    map[uuid.UUID]bool
}

// fakeDB is an in-memory stand-in for dbbackend.Backend, enough to drive
// every filter shape the archive package builds by hand (see corerow.go).
type fakeDB struct {
	rows map[uuid.UUID]*fakeProductRow
}

func newFakeDB() *fakeDB {
	return &fakeDB{rows: map[uuid.UUID]*fakeProductRow{}}
}

func (f *fakeDB) Prepare(ctx context.Context, schema dbbackend.Schema) apperrors.Error { return nil }
func (f *fakeDB) Destroy(ctx context.Context) apperrors.Error                          { return nil }

func (f *fakeDB) WithTransaction(ctx context.Context, fn func(ctx context.Context) apperrors.Error) apperrors.Error {
	return fn(ctx)
}

func (f *fakeDB) InsertCore(ctx context.Context, row dbbackend.CoreRow) apperrors.Error {
	f.rows[row.UUID] = &fakeProductRow{
		core:       row,
		namespaces: map[string]map[string]values.Value{},
		tags:       map[string]bool{},
		sources:    map[uuid.UUID]bool{},
	}
	return nil
}

func (f *fakeDB) InsertNamespace(ctx context.Context, namespace string, id uuid.UUID, fields map[string]values.Value) apperrors.Error {
	row, ok := f.rows[id]
	if !ok {
		return apperrors.ErrNotFound.Msg("fakeDB: no such row")
	}
	cp := make(map[string]values.Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	row.namespaces[namespace] = cp
	return nil
}

func (f *fakeDB) matches(row *fakeProductRow, node expr.Node) bool {
	switch n := node.(type) {
	case *expr.Binary:
		switch n.Op {
		case expr.OpAnd:
			return f.matches(row, n.Left) && f.matches(row, n.Right)
		case expr.OpEq:
			field := n.Left.(*expr.FieldRef).Field
			lit := n.Right.(*expr.Literal).Value
			return f.fieldEquals(row, field, lit)
		}
	case *expr.FuncCall:
		if n.Name == "is_defined" {
			ns := n.Args[0].(*expr.NamespaceRef).Namespace
			_, ok := row.namespaces[ns]
			return ok
		}
	}
	return false
}

func (f *fakeDB) fieldEquals(row *fakeProductRow, field string, lit values.Value) bool {
	switch field {
	case "uuid":
		return row.core.UUID == lit.UUID()
	case "product_type":
		return row.core.ProductType == lit.Text()
	case "product_name":
		return row.core.ProductName == lit.Text()
	case "physical_name":
		return row.core.PhysicalName == lit.Text()
	case "archive_path":
		return row.core.ArchivePath != nil && *row.core.ArchivePath == lit.Text()
	}
	return false
}

// namespaceOnlyDelete recognizes the andNode(uuidFilter(id), isDefinedNode(ns))
// shape ops_properties.go uses to delete a single namespace row rather than
// the whole product.
func namespaceOnlyDelete(node expr.Node) (uuid.UUID, string, bool) {
	bin, ok := node.(*expr.Binary)
	if !ok || bin.Op != expr.OpAnd {
		return uuid.UUID{}, "", false
	}
	idBin, ok := bin.Left.(*expr.Binary)
	if !ok {
		return uuid.UUID{}, "", false
	}
	fc, ok := bin.Right.(*expr.FuncCall)
	if !ok || fc.Name != "is_defined" {
		return uuid.UUID{}, "", false
	}
	nsRef, ok := fc.Args[0].(*expr.NamespaceRef)
	if !ok {
		return uuid.UUID{}, "", false
	}
	idLit, ok := idBin.Right.(*expr.Literal)
	if !ok {
		return uuid.UUID{}, "", false
	}
	return idLit.Value.UUID(), nsRef.Namespace, true
}

func (f *fakeDB) Update(ctx context.Context, namespace string, fields map[string]values.Value, where expr.Node) (int64, apperrors.Error) {
	var n int64
	for _, row := range f.rows {
		if !f.matches(row, where) {
			continue
		}
		n++
		if namespace == "core" {
			applyCoreFields(row, fields)
			continue
		}
		if row.namespaces[namespace] == nil {
			row.namespaces[namespace] = map[string]values.Value{}
		}
		for k, v := range fields {
			row.namespaces[namespace][k] = v
		}
	}
	return n, nil
}

func applyCoreFields(row *fakeProductRow, fields map[string]values.Value) {
	for k, v := range fields {
		switch k {
		case "active":
			row.core.Active = v.Boolean()
		case "archive_path":
			if v.IsNull() {
				row.core.ArchivePath = nil
			} else {
				s := v.Text()
				row.core.ArchivePath = &s
			}
		case "archive_date":
			if v.IsNull() {
				row.core.ArchiveDate = nil
			} else {
				t := v.Timestamp()
				row.core.ArchiveDate = &t
			}
		case "hash":
			if v.IsNull() {
				row.core.Hash = nil
			} else {
				s := v.Text()
				row.core.Hash = &s
			}
		case "size":
			n := v.Long64()
			row.core.Size = &n
		}
	}
}

func (f *fakeDB) Delete(ctx context.Context, where expr.Node) (int64, apperrors.Error) {
	if id, ns, ok := namespaceOnlyDelete(where); ok {
		row, exists := f.rows[id]
		if !exists {
			return 0, nil
		}
		if _, has := row.namespaces[ns]; !has {
			return 0, nil
		}
		delete(row.namespaces, ns)
		return 1, nil
	}
	var toDelete []uuid.UUID
	for id, row := range f.rows {
		if f.matches(row, where) {
			toDelete = append(toDelete, id)
		}
	}
	for _, id := range toDelete {
		delete(f.rows, id)
	}
	return int64(len(toDelete)), nil
}

func (f *fakeDB) Search(ctx context.Context, filter expr.Node, orderBy []dbbackend.OrderTerm, limit int, projection []string) ([]dbbackend.Row, apperrors.Error) {
	var ids []uuid.UUID
	for id, row := range f.rows {
		if filter == nil || f.matches(row, filter) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	var out []dbbackend.Row
	for _, id := range ids {
		out = append(out, coreRowToDBRow(f.rows[id].core))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeDB) Count(ctx context.Context, filter expr.Node) (int64, apperrors.Error) {
	rows, err := f.Search(ctx, filter, nil, 0, nil)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (f *fakeDB) Summary(ctx context.Context, req dbbackend.SummaryRequest) ([]dbbackend.Row, apperrors.Error) {
	return nil, nil
}

func (f *fakeDB) Link(ctx context.Context, id, sourceID uuid.UUID) apperrors.Error {
	row, ok := f.rows[id]
	if !ok {
		return apperrors.ErrNotFound.Msg("fakeDB: no such row")
	}
	row.sources[sourceID] = true
	return nil
}

func (f *fakeDB) Unlink(ctx context.Context, id, sourceID uuid.UUID) apperrors.Error {
	if row, ok := f.rows[id]; ok {
		delete(row.sources, sourceID)
	}
	return nil
}

func (f *fakeDB) Tag(ctx context.Context, id uuid.UUID, tag string) apperrors.Error {
	row, ok := f.rows[id]
	if !ok {
		return apperrors.ErrNotFound.Msg("fakeDB: no such row")
	}
	row.tags[tag] = true
	return nil
}

func (f *fakeDB) Untag(ctx context.Context, id uuid.UUID, tag string) apperrors.Error {
	if row, ok := f.rows[id]; ok {
		delete(row.tags, tag)
	}
	return nil
}

func (f *fakeDB) ListTags(ctx context.Context, id uuid.UUID) ([]string, apperrors.Error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrNotFound.Msg("fakeDB: no such row")
	}
	var out []string
	for t := range row.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeDB) DerivedOf(ctx context.Context, id uuid.UUID) ([]uuid.UUID, apperrors.Error) {
	var out []uuid.UUID
	for candidateID, row := range f.rows {
		if row.sources[id] {
			out = append(out, candidateID)
		}
	}
	return out, nil
}

func (f *fakeDB) SourcesOf(ctx context.Context, id uuid.UUID) ([]uuid.UUID, apperrors.Error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	var out []uuid.UUID
	for src := range row.sources {
		out = append(out, src)
	}
	return out, nil
}

func (f *fakeDB) Dialect() dbbackend.Dialect { return fakeDialect{} }

func coreRowToDBRow(core dbbackend.CoreRow) dbbackend.Row {
	row := dbbackend.Row{
		"uuid":          values.NewUUID(core.UUID),
		"active":        values.NewBoolean(core.Active),
		"product_type":  values.NewText(core.ProductType),
		"product_name":  values.NewText(core.ProductName),
		"physical_name": values.NewText(core.PhysicalName),
		"metadata_date": values.NewTimestamp(core.MetadataDate),
	}
	if core.ArchivePath != nil {
		row["archive_path"] = values.NewText(*core.ArchivePath)
	} else {
		row["archive_path"] = values.Null(values.KindText)
	}
	if core.ArchiveDate != nil {
		row["archive_date"] = values.NewTimestamp(*core.ArchiveDate)
	} else {
		row["archive_date"] = values.Null(values.KindTimestamp)
	}
	if core.Hash != nil {
		row["hash"] = values.NewText(*core.Hash)
	} else {
		row["hash"] = values.Null(values.KindText)
	}
	if core.Size != nil {
		row["size"] = values.NewLong64(*core.Size)
	} else {
		row["size"] = values.Null(values.KindLong64)
	}
	if core.RemoteURL != nil {
		row["remote_url"] = values.NewText(*core.RemoteURL)
	} else {
		row["remote_url"] = values.Null(values.KindText)
	}
	return row
}

// fakeWorkspace is a no-op storage.Workspace: tests never touch the
// filesystem, so Dir just needs to be a stable, distinguishable string.
type fakeWorkspace struct{ dir string }

func (w *fakeWorkspace) Dir() string { return w.dir }
func (w *fakeWorkspace) Close() error { return nil }

type fakeStoredObject struct {
	size int64
	hash string
}

// fakeStore is an in-memory stand-in for storage.Backend, keyed by
// (archivePath, physicalName); it never touches the real filesystem.
type fakeStore struct {
	objects map[string]fakeStoredObject
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string]fakeStoredObject{}}
}

func storeKey(archivePath, physicalName string) string {
	return archivePath + "/" + physicalName
}

func (s *fakeStore) Prepare(ctx context.Context) apperrors.Error { return nil }
func (s *fakeStore) Destroy(ctx context.Context) apperrors.Error { return nil }

func (s *fakeStore) Exists(ctx context.Context, archivePath, physicalName string) (bool, apperrors.Error) {
	_, ok := s.objects[storeKey(archivePath, physicalName)]
	return ok, nil
}

func (s *fakeStore) Put(ctx context.Context, srcPaths []string, archivePath, physicalName string, useSymlinks bool) (int64, apperrors.Error) {
	size := int64(len(srcPaths)) * 1024
	s.objects[storeKey(archivePath, physicalName)] = fakeStoredObject{size: size, hash: "deadbeef"}
	return size, nil
}

func (s *fakeStore) PutFromStream(ctx context.Context, r io.Reader, archivePath, physicalName string) (int64, apperrors.Error) {
	s.objects[storeKey(archivePath, physicalName)] = fakeStoredObject{size: 0, hash: "deadbeef"}
	return 0, nil
}

func (s *fakeStore) MoveWithin(ctx context.Context, oldArchivePath, oldPhysicalName, newArchivePath, newPhysicalName string) apperrors.Error {
	obj, ok := s.objects[storeKey(oldArchivePath, oldPhysicalName)]
	if !ok {
		return apperrors.ErrNotFound.Msg("fakeStore: no such object")
	}
	delete(s.objects, storeKey(oldArchivePath, oldPhysicalName))
	s.objects[storeKey(newArchivePath, newPhysicalName)] = obj
	return nil
}

func (s *fakeStore) Retrieve(ctx context.Context, archivePath, physicalName, targetDir string, useSymlinks bool) ([]string, apperrors.Error) {
	if _, ok := s.objects[storeKey(archivePath, physicalName)]; !ok {
		return nil, apperrors.ErrNotFound.Msg("fakeStore: no such object")
	}
	return []string{filepath.Join(targetDir, physicalName)}, nil
}

func (s *fakeStore) Remove(ctx context.Context, archivePath, physicalName string) apperrors.Error {
	key := storeKey(archivePath, physicalName)
	if _, ok := s.objects[key]; !ok {
		return apperrors.ErrNotFound.Msg("fakeStore: no such object")
	}
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) Size(ctx context.Context, archivePath, physicalName string) (int64, apperrors.Error) {
	obj, ok := s.objects[storeKey(archivePath, physicalName)]
	if !ok {
		return 0, apperrors.ErrNotFound.Msg("fakeStore: no such object")
	}
	return obj.size, nil
}

func (s *fakeStore) Hash(ctx context.Context, archivePath, physicalName string, algorithm storage.HashAlgorithm) (string, apperrors.Error) {
	obj, ok := s.objects[storeKey(archivePath, physicalName)]
	if !ok {
		return "", apperrors.ErrNotFound.Msg("fakeStore: no such object")
	}
	return obj.hash, nil
}

func (s *fakeStore) TempWorkspace(ctx context.Context) (storage.Workspace, apperrors.Error) {
	return &fakeWorkspace{dir: "/tmp/fake-workspace"}, nil
}

var (
	_ dbbackend.Backend = (*fakeDB)(nil)
	_ storage.Backend   = (*fakeStore)(nil)
)
