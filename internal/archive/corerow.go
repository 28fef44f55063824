package archive

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/dbbackend"
	"github.com/stcorp/muninn/internal/expr"
	"github.com/stcorp/muninn/internal/values"
)

// coreSnapshot is the subset of a core row the orchestrator reads back to
// decide how to drive a mutation (e.g. whether a product is already
// archived, what its product type is for hook dispatch).
type coreSnapshot struct {
	UUID         uuid.UUID
	Active       bool
	ProductType  string
	ProductName  string
	PhysicalName string
	ArchivePath  *string
	ArchiveDate  *time.Time
	MetadataDate time.Time
	Hash         *string
	Size         *int64
	RemoteURL    *string
}

// uuidFilter builds "core.uuid == id", the lookup predicate every
// single-product operation narrows to.
func uuidFilter(id uuid.UUID) expr.Node {
	return &expr.Binary{
		Op:    expr.OpEq,
		Left:  &expr.FieldRef{Field: "uuid"},
		Right: &expr.Literal{Value: values.NewUUID(id)},
	}
}

func productTypeNameFilter(productType, productName string) expr.Node {
	return &expr.Binary{
		Op: expr.OpAnd,
		Left: &expr.Binary{
			Op:    expr.OpEq,
			Left:  &expr.FieldRef{Field: "product_type"},
			Right: &expr.Literal{Value: values.NewText(productType)},
		},
		Right: &expr.Binary{
			Op:    expr.OpEq,
			Left:  &expr.FieldRef{Field: "product_name"},
			Right: &expr.Literal{Value: values.NewText(productName)},
		},
	}
}

func productTypePhysicalNameFilter(productType, physicalName string) expr.Node {
	return &expr.Binary{
		Op: expr.OpAnd,
		Left: &expr.Binary{
			Op:    expr.OpEq,
			Left:  &expr.FieldRef{Field: "product_type"},
			Right: &expr.Literal{Value: values.NewText(productType)},
		},
		Right: &expr.Binary{
			Op:    expr.OpEq,
			Left:  &expr.FieldRef{Field: "physical_name"},
			Right: &expr.Literal{Value: values.NewText(physicalName)},
		},
	}
}

func archivePathNameFilter(archivePath, physicalName string) expr.Node {
	return &expr.Binary{
		Op: expr.OpAnd,
		Left: &expr.Binary{
			Op:    expr.OpEq,
			Left:  &expr.FieldRef{Field: "archive_path"},
			Right: &expr.Literal{Value: values.NewText(archivePath)},
		},
		Right: &expr.Binary{
			Op:    expr.OpEq,
			Left:  &expr.FieldRef{Field: "physical_name"},
			Right: &expr.Literal{Value: values.NewText(physicalName)},
		},
	}
}

// fetchCore looks up a single core row by id, returning found=false rather
// than an error when no row matches.
func fetchCore(ctx context.Context, db dbbackend.Backend, id uuid.UUID) (coreSnapshot, bool, apperrors.Error) {
	rows, err := db.Search(ctx, uuidFilter(id), nil, 1, nil)
	if err != nil {
		return coreSnapshot{}, false, err
	}
	if len(rows) == 0 {
		return coreSnapshot{}, false, nil
	}
	snap, serr := rowToSnapshot(rows[0])
	if serr != nil {
		return coreSnapshot{}, false, serr
	}
	return snap, true, nil
}

func rowToSnapshot(row dbbackend.Row) (coreSnapshot, apperrors.Error) {
	var snap coreSnapshot
	var err apperrors.Error
	if snap.UUID, err = rowUUID(row, "uuid"); err != nil {
		return snap, err
	}
	snap.Active = rowBool(row, "active")
	snap.ProductType = rowText(row, "product_type")
	snap.ProductName = rowText(row, "product_name")
	snap.PhysicalName = rowText(row, "physical_name")
	snap.ArchivePath = rowTextPtr(row, "archive_path")
	snap.ArchiveDate = rowTimePtr(row, "archive_date")
	snap.MetadataDate = rowTime(row, "metadata_date")
	snap.Hash = rowTextPtr(row, "hash")
	snap.Size = rowLongPtr(row, "size")
	snap.RemoteURL = rowTextPtr(row, "remote_url")
	return snap, nil
}

func rowUUID(row dbbackend.Row, field string) (uuid.UUID, apperrors.Error) {
	v, ok := row[field]
	if !ok || v.IsNull() {
		return uuid.UUID{}, ErrArchive.Msg("core row missing uuid column")
	}
	if v.Kind() == values.KindUUID {
		return v.UUID(), nil
	}
	id, perr := uuid.Parse(v.Text())
	if perr != nil {
		return uuid.UUID{}, ErrArchive.MsgErr("core row uuid column is not a valid UUID", perr)
	}
	return id, nil
}

func rowBool(row dbbackend.Row, field string) bool {
	v, ok := row[field]
	if !ok || v.IsNull() {
		return false
	}
	if v.Kind() == values.KindBoolean {
		return v.Boolean()
	}
	return v.Text() == "true" || v.Text() == "t" || v.Text() == "1"
}

func rowText(row dbbackend.Row, field string) string {
	v, ok := row[field]
	if !ok || v.IsNull() {
		return ""
	}
	return v.Text()
}

func rowTextPtr(row dbbackend.Row, field string) *string {
	v, ok := row[field]
	if !ok || v.IsNull() {
		return nil
	}
	s := v.Text()
	return &s
}

func rowTime(row dbbackend.Row, field string) time.Time {
	v, ok := row[field]
	if !ok || v.IsNull() {
		return time.Time{}
	}
	if v.Kind() == values.KindTimestamp {
		return v.Timestamp()
	}
	t, perr := time.Parse(time.RFC3339Nano, v.Text())
	if perr != nil {
		return time.Time{}
	}
	return t
}

func rowTimePtr(row dbbackend.Row, field string) *time.Time {
	v, ok := row[field]
	if !ok || v.IsNull() {
		return nil
	}
	t := rowTime(row, field)
	return &t
}

func rowLongPtr(row dbbackend.Row, field string) *int64 {
	v, ok := row[field]
	if !ok || v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case values.KindLong64:
		n := v.Long64()
		return &n
	case values.KindInteger32:
		n := int64(v.Integer32())
		return &n
	default:
		return nil
	}
}
