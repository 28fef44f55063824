package dbbackend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/expr"
	"github.com/stcorp/muninn/internal/schema"
	"github.com/stcorp/muninn/internal/values"
)

// SQLite is the embedded sqlite+SpatiaLite implementation of Backend. It
// loads the SpatiaLite extension at open time from a configurable library
// path (spec §4.5's "the embedded backend loads a spatial extension whose
// library path is configurable").
type SQLite struct {
	db          *sql.DB
	tablePrefix string
	namespaces  map[string]schema.Namespace
}

// registerSpatialiteDriver registers a sqlite3 driver variant, keyed by the
// extension path, that loads SpatiaLite into every new connection via the
// driver's ConnectHook. mattn/go-sqlite3 does not expose runtime
// "load_extension()" SQL by default, so the extension has to be attached at
// the connection level instead.
var (
	driverMu       sync.Mutex
	driverRegistry = map[string]bool{}
)

func registerSpatialiteDriver(modSpatialitePath string) string {
	name := "sqlite3_spatialite_" + modSpatialitePath
	driverMu.Lock()
	defer driverMu.Unlock()
	if !driverRegistry[name] {
		sql.Register(name, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				if err := conn.LoadExtension(modSpatialitePath, ""); err != nil {
					return err
				}
				_, err := conn.Exec("SELECT InitSpatialMetaData(1)", nil)
				return err
			},
		})
		driverRegistry[name] = true
	}
	return name
}

// NewSQLite opens (creating if necessary) the database file at path and
// loads the SpatiaLite extension from modSpatialitePath.
func NewSQLite(path, modSpatialitePath, tablePrefix string) (*SQLite, apperrors.Error) {
	driverName := "sqlite3"
	if modSpatialitePath != "" {
		driverName = registerSpatialiteDriver(modSpatialitePath)
	}
	dsn := fmt.Sprintf("file:%s?_loc=auto", path)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, ErrBackend.MsgErr("failed to open sqlite database", err)
	}
	if err := db.Ping(); err != nil {
		return nil, ErrBackend.MsgErr("failed to open sqlite database", err)
	}
	return &SQLite{db: db, tablePrefix: tablePrefix, namespaces: map[string]schema.Namespace{}}, nil
}

func (s *SQLite) Dialect() Dialect { return SQLiteDialect }

func (s *SQLite) table(name string) string { return s.tablePrefix + name }

func (s *SQLite) Prepare(ctx context.Context, sch Schema) apperrors.Error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			uuid TEXT PRIMARY KEY,
			active INTEGER NOT NULL,
			hash TEXT,
			size INTEGER,
			metadata_date TEXT NOT NULL,
			archive_date TEXT,
			archive_path TEXT,
			product_type TEXT NOT NULL,
			product_name TEXT NOT NULL,
			physical_name TEXT NOT NULL,
			validity_start TEXT,
			validity_stop TEXT,
			creation_date TEXT,
			remote_url TEXT,
			UNIQUE (product_type, product_name),
			UNIQUE (archive_path, physical_name)
		)`, s.table("core")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid TEXT NOT NULL REFERENCES %s(uuid) ON DELETE CASCADE,
			tag TEXT NOT NULL,
			UNIQUE (uuid, tag)
		)`, s.table("tag"), s.table("core")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid TEXT NOT NULL REFERENCES %s(uuid) ON DELETE CASCADE,
			source_uuid TEXT NOT NULL REFERENCES %s(uuid) ON DELETE CASCADE,
			UNIQUE (uuid, source_uuid)
		)`, s.table("link"), s.table("core"), s.table("core")),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return ErrBackend.MsgErr("failed to prepare core schema", err)
		}
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(
		"SELECT AddGeometryColumn('%s', 'footprint', 4326, 'GEOMETRY', 2)", s.table("core"))); err != nil {
		return ErrBackend.MsgErr("failed to add footprint geometry column", err)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(
		"SELECT CreateSpatialIndex('%s', 'footprint')", s.table("core"))); err != nil {
		return ErrBackend.MsgErr("failed to create footprint spatial index", err)
	}
	for _, ns := range sch.Namespaces {
		if err := s.prepareNamespace(ctx, ns); err != nil {
			return err
		}
		s.namespaces[ns.Name] = ns
	}
	return nil
}

func (s *SQLite) prepareNamespace(ctx context.Context, ns schema.Namespace) apperrors.Error {
	var cols []string
	var geomCols []string
	var plainIndices []string
	for _, f := range ns.Fields {
		if f.Name == "uuid" {
			continue
		}
		if f.Type == values.KindGeometry {
			geomCols = append(geomCols, f.Name)
			continue
		}
		col := fmt.Sprintf("%s %s", f.Name, sqliteColumnType(f.Type))
		if !f.Optional {
			col += " NOT NULL"
		}
		cols = append(cols, col)
		if f.Indexed {
			plainIndices = append(plainIndices, f.Name)
		}
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		uuid TEXT PRIMARY KEY REFERENCES %s(uuid) ON DELETE CASCADE,
		%s
	)`, s.table(ns.Name), s.table("core"), strings.Join(cols, ",\n\t\t"))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return ErrBackend.MsgErr(fmt.Sprintf("failed to prepare namespace table %q", ns.Name), err)
	}
	for _, name := range plainIndices {
		idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_%s_idx ON %s (%s)", s.table(ns.Name), name, s.table(ns.Name), name)
		if _, err := s.db.ExecContext(ctx, idx); err != nil {
			return ErrBackend.MsgErr(fmt.Sprintf("failed to create index on namespace %q", ns.Name), err)
		}
	}
	for _, name := range geomCols {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(
			"SELECT AddGeometryColumn('%s', '%s', 4326, 'GEOMETRY', 2)", s.table(ns.Name), name)); err != nil {
			return ErrBackend.MsgErr(fmt.Sprintf("failed to add geometry column %q", name), err)
		}
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(
			"SELECT CreateSpatialIndex('%s', '%s')", s.table(ns.Name), name)); err != nil {
			return ErrBackend.MsgErr(fmt.Sprintf("failed to create spatial index on %q", name), err)
		}
	}
	return nil
}

func sqliteColumnType(k values.Kind) string {
	switch k {
	case values.KindBoolean, values.KindInteger32, values.KindLong64:
		return "INTEGER"
	case values.KindReal:
		return "REAL"
	case values.KindJSON:
		return "TEXT"
	default:
		return "TEXT"
	}
}

func (s *SQLite) Destroy(ctx context.Context) apperrors.Error {
	for ns := range s.namespaces {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", s.table(ns))); err != nil {
			return ErrBackend.MsgErr(fmt.Sprintf("failed to drop namespace table %q", ns), err)
		}
	}
	for _, t := range []string{"link", "tag", "core"} {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", s.table(t))); err != nil {
			return ErrBackend.MsgErr(fmt.Sprintf("failed to drop table %q", t), err)
		}
	}
	if err := s.db.Close(); err != nil {
		return ErrBackend.MsgErr("failed to close sqlite database", err)
	}
	return nil
}

type sqliteTxKey struct{}

func (s *SQLite) WithTransaction(ctx context.Context, fn func(ctx context.Context) apperrors.Error) apperrors.Error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ErrBackend.MsgErr("failed to begin transaction", err)
	}
	txCtx := context.WithValue(ctx, sqliteTxKey{}, tx)
	if aerr := fn(txCtx); aerr != nil {
		_ = tx.Rollback()
		return aerr
	}
	if err := tx.Commit(); err != nil {
		return ErrBackend.MsgErr("failed to commit transaction", err)
	}
	return nil
}

type sqliteExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLite) conn(ctx context.Context) sqliteExecer {
	if tx, ok := ctx.Value(sqliteTxKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

func (s *SQLite) InsertCore(ctx context.Context, row CoreRow) apperrors.Error {
	stmt := fmt.Sprintf(`INSERT INTO %s
		(uuid, active, hash, size, metadata_date, archive_date, archive_path,
		 product_type, product_name, physical_name, validity_start, validity_stop,
		 creation_date, remote_url)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, s.table("core"))
	_, err := s.conn(ctx).ExecContext(ctx, stmt,
		row.UUID.String(), row.Active, row.Hash, row.Size, values.FormatTimestamp(row.MetadataDate),
		optionalTimestamp(row.ArchiveDate), row.ArchivePath, row.ProductType, row.ProductName, row.PhysicalName,
		optionalTimestamp(row.ValidityStart), optionalTimestamp(row.ValidityStop),
		optionalTimestamp(row.CreationDate), row.RemoteURL)
	if err != nil {
		return ErrBackend.MsgErr("failed to insert core row", err)
	}
	if row.Footprint != nil {
		wkt := values.FormatWKT(*row.Footprint)
		fstmt := fmt.Sprintf("UPDATE %s SET footprint = GeomFromText(?, 4326) WHERE uuid = ?", s.table("core"))
		if _, err := s.conn(ctx).ExecContext(ctx, fstmt, wkt, row.UUID.String()); err != nil {
			return ErrBackend.MsgErr("failed to set core footprint", err)
		}
	}
	return nil
}

func optionalTimestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return values.FormatTimestamp(*t)
}

func (s *SQLite) InsertNamespace(ctx context.Context, namespace string, id uuid.UUID, fields map[string]values.Value) apperrors.Error {
	cols := []string{"uuid"}
	placeholders := []string{"?"}
	args := []any{id.String()}
	var geomSets []string
	var geomArgs []any
	for name, v := range fields {
		if v.Kind() == values.KindGeometry {
			geomSets = append(geomSets, name)
			geomArgs = append(geomArgs, values.FormatWKT(v.Geometry()))
			continue
		}
		cols = append(cols, name)
		placeholders = append(placeholders, "?")
		args = append(args, scalarArgSQLite(v))
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table(namespace), strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if _, err := s.conn(ctx).ExecContext(ctx, stmt, args...); err != nil {
		return ErrBackend.MsgErr(fmt.Sprintf("failed to insert namespace row for %q", namespace), err)
	}
	for i, name := range geomSets {
		ustmt := fmt.Sprintf("UPDATE %s SET %s = GeomFromText(?, 4326) WHERE uuid = ?", s.table(namespace), name)
		if _, err := s.conn(ctx).ExecContext(ctx, ustmt, geomArgs[i], id.String()); err != nil {
			return ErrBackend.MsgErr(fmt.Sprintf("failed to set geometry column %q", name), err)
		}
	}
	return nil
}

func scalarArgSQLite(v values.Value) any {
	switch v.Kind() {
	case values.KindBoolean:
		return v.Boolean()
	case values.KindInteger32:
		return v.Integer32()
	case values.KindLong64:
		return v.Long64()
	case values.KindReal:
		return v.Real()
	case values.KindTimestamp:
		return values.FormatTimestamp(v.Timestamp())
	case values.KindUUID:
		return v.UUID().String()
	case values.KindJSON:
		return v.JSONText()
	default:
		return v.Text()
	}
}

func (s *SQLite) Update(ctx context.Context, namespace string, fields map[string]values.Value, where expr.Node) (int64, apperrors.Error) {
	lowered, lerr := Lower(where, SQLiteDialect)
	if lerr != nil {
		return 0, lerr
	}
	var sets []string
	var args []any
	for name, v := range fields {
		if v.Kind() == values.KindGeometry {
			sets = append(sets, fmt.Sprintf("%s = GeomFromText(?, 4326)", name))
			args = append(args, values.FormatWKT(v.Geometry()))
		} else {
			sets = append(sets, name+" = ?")
			args = append(args, scalarArgSQLite(v))
		}
	}
	args = append(args, lowered.Args...)
	table := "core"
	if namespace != "" && namespace != "core" {
		table = namespace
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s", s.table(table), strings.Join(sets, ", "), lowered.SQL)
	res, err := s.conn(ctx).ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, ErrBackend.MsgErr("failed to update rows", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *SQLite) Delete(ctx context.Context, where expr.Node) (int64, apperrors.Error) {
	lowered, lerr := Lower(where, SQLiteDialect)
	if lerr != nil {
		return 0, lerr
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s", s.table("core"), lowered.SQL)
	res, err := s.conn(ctx).ExecContext(ctx, stmt, lowered.Args...)
	if err != nil {
		return 0, ErrBackend.MsgErr("failed to delete rows", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *SQLite) Search(ctx context.Context, filter expr.Node, orderBy []OrderTerm, limit int, projection []string) ([]Row, apperrors.Error) {
	cols := "core.*"
	if len(projection) > 0 {
		cols = strings.Join(projection, ", ")
	}
	stmt := fmt.Sprintf("SELECT %s FROM %s core", cols, s.table("core"))
	var args []any
	if filter != nil {
		for _, ns := range RequiredNamespaces(filter) {
			stmt += fmt.Sprintf(" JOIN %s %s ON %s.uuid = core.uuid", s.table(ns), ns, ns)
		}
		lowered, lerr := Lower(filter, SQLiteDialect)
		if lerr != nil {
			return nil, lerr
		}
		stmt += " WHERE " + lowered.SQL
		args = lowered.Args
	}
	if len(orderBy) > 0 {
		var terms []string
		for _, t := range orderBy {
			dir := "ASC"
			if t.Desc {
				dir = "DESC"
			}
			terms = append(terms, fmt.Sprintf("%s %s", t.Field, dir))
		}
		stmt += " ORDER BY " + strings.Join(terms, ", ")
	}
	if limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.conn(ctx).QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, ErrBackend.MsgErr("search query failed", err)
	}
	defer rows.Close()
	return scanSQLRows(rows)
}

func (s *SQLite) Count(ctx context.Context, filter expr.Node) (int64, apperrors.Error) {
	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s core", s.table("core"))
	var args []any
	if filter != nil {
		for _, ns := range RequiredNamespaces(filter) {
			stmt += fmt.Sprintf(" JOIN %s %s ON %s.uuid = core.uuid", s.table(ns), ns, ns)
		}
		lowered, lerr := Lower(filter, SQLiteDialect)
		if lerr != nil {
			return 0, lerr
		}
		stmt += " WHERE " + lowered.SQL
		args = lowered.Args
	}
	var count int64
	if err := s.conn(ctx).QueryRowContext(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, ErrBackend.MsgErr("count query failed", err)
	}
	return count, nil
}

func (s *SQLite) Summary(ctx context.Context, req SummaryRequest) ([]Row, apperrors.Error) {
	var selectCols []string
	var groupCols []string
	for _, g := range req.GroupBy {
		col := sqliteGroupByExpr(g)
		selectCols = append(selectCols, col+" AS "+groupAlias(g))
		groupCols = append(groupCols, col)
	}
	if req.GroupByTag {
		selectCols = append(selectCols, "tag.tag AS tag")
		groupCols = append(groupCols, "tag.tag")
	}
	for _, a := range req.Aggregates {
		selectCols = append(selectCols, sqliteAggregateExpr(a)+" AS "+a.Alias)
	}
	stmt := fmt.Sprintf("SELECT %s FROM %s core", strings.Join(selectCols, ", "), s.table("core"))
	if req.GroupByTag {
		stmt += fmt.Sprintf(" JOIN %s tag ON tag.uuid = core.uuid", s.table("tag"))
	}
	var args []any
	if req.Filter != nil {
		for _, ns := range RequiredNamespaces(req.Filter) {
			stmt += fmt.Sprintf(" JOIN %s %s ON %s.uuid = core.uuid", s.table(ns), ns, ns)
		}
		lowered, lerr := Lower(req.Filter, SQLiteDialect)
		if lerr != nil {
			return nil, lerr
		}
		stmt += " WHERE " + lowered.SQL
		args = lowered.Args
	}
	if len(groupCols) > 0 {
		stmt += " GROUP BY " + strings.Join(groupCols, ", ")
	}
	if req.Having != nil {
		lowered, lerr := Lower(req.Having, SQLiteDialect)
		if lerr != nil {
			return nil, lerr
		}
		stmt += " HAVING " + lowered.SQL
		args = append(args, lowered.Args...)
	}
	if len(req.OrderBy) > 0 {
		var terms []string
		for _, t := range req.OrderBy {
			dir := "ASC"
			if t.Desc {
				dir = "DESC"
			}
			terms = append(terms, fmt.Sprintf("%s %s", t.Field, dir))
		}
		stmt += " ORDER BY " + strings.Join(terms, ", ")
	}
	rows, err := s.conn(ctx).QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, ErrBackend.MsgErr("summary query failed", err)
	}
	defer rows.Close()
	return scanSQLRows(rows)
}

func sqliteGroupByExpr(g GroupByKey) string {
	if g.Bin == BinNone {
		return "core." + g.Field
	}
	switch g.Bin {
	case BinYear:
		return fmt.Sprintf("strftime('%%Y', core.%s)", g.Field)
	case BinMonth:
		return fmt.Sprintf("strftime('%%m', core.%s)", g.Field)
	case BinYearMonth:
		return fmt.Sprintf("strftime('%%Y-%%m', core.%s)", g.Field)
	case BinDate:
		return fmt.Sprintf("strftime('%%Y-%%m-%%d', core.%s)", g.Field)
	case BinDay:
		return fmt.Sprintf("strftime('%%d', core.%s)", g.Field)
	case BinHour:
		return fmt.Sprintf("strftime('%%H', core.%s)", g.Field)
	case BinMinute:
		return fmt.Sprintf("strftime('%%M', core.%s)", g.Field)
	case BinSecond:
		return fmt.Sprintf("strftime('%%S', core.%s)", g.Field)
	case BinTime:
		return fmt.Sprintf("strftime('%%H:%%M:%%S', core.%s)", g.Field)
	default:
		return "core." + g.Field
	}
}

func sqliteAggregateExpr(a Aggregate) string {
	if a.ValidityDuration {
		return "(julianday(core.validity_stop) - julianday(core.validity_start)) * 86400.0"
	}
	return fmt.Sprintf("%s(core.%s)", strings.ToUpper(string(a.Func)), a.Field)
}

func (s *SQLite) Link(ctx context.Context, id, sourceID uuid.UUID) apperrors.Error {
	if id == sourceID {
		return ErrBackend.Msg("a product cannot link to itself")
	}
	stmt := fmt.Sprintf(`INSERT OR IGNORE INTO %s (uuid, source_uuid) VALUES (?,?)`, s.table("link"))
	if _, err := s.conn(ctx).ExecContext(ctx, stmt, id.String(), sourceID.String()); err != nil {
		return ErrBackend.MsgErr("failed to insert link", err)
	}
	return nil
}

func (s *SQLite) Unlink(ctx context.Context, id, sourceID uuid.UUID) apperrors.Error {
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE uuid = ? AND source_uuid = ?`, s.table("link"))
	if _, err := s.conn(ctx).ExecContext(ctx, stmt, id.String(), sourceID.String()); err != nil {
		return ErrBackend.MsgErr("failed to delete link", err)
	}
	return nil
}

func (s *SQLite) Tag(ctx context.Context, id uuid.UUID, tag string) apperrors.Error {
	stmt := fmt.Sprintf(`INSERT OR IGNORE INTO %s (uuid, tag) VALUES (?,?)`, s.table("tag"))
	if _, err := s.conn(ctx).ExecContext(ctx, stmt, id.String(), tag); err != nil {
		return ErrBackend.MsgErr("failed to insert tag", err)
	}
	return nil
}

func (s *SQLite) Untag(ctx context.Context, id uuid.UUID, tag string) apperrors.Error {
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE uuid = ? AND tag = ?`, s.table("tag"))
	if _, err := s.conn(ctx).ExecContext(ctx, stmt, id.String(), tag); err != nil {
		return ErrBackend.MsgErr("failed to delete tag", err)
	}
	return nil
}

func (s *SQLite) ListTags(ctx context.Context, id uuid.UUID) ([]string, apperrors.Error) {
	stmt := fmt.Sprintf(`SELECT tag FROM %s WHERE uuid = ? ORDER BY tag`, s.table("tag"))
	rows, err := s.conn(ctx).QueryContext(ctx, stmt, id.String())
	if err != nil {
		return nil, ErrBackend.MsgErr("failed to list tags", err)
	}
	defer rows.Close()
	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, ErrBackend.MsgErr("failed to scan tag row", err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func (s *SQLite) DerivedOf(ctx context.Context, id uuid.UUID) ([]uuid.UUID, apperrors.Error) {
	return s.queryUUIDs(ctx, fmt.Sprintf(`SELECT uuid FROM %s WHERE source_uuid = ?`, s.table("link")), id)
}

func (s *SQLite) SourcesOf(ctx context.Context, id uuid.UUID) ([]uuid.UUID, apperrors.Error) {
	return s.queryUUIDs(ctx, fmt.Sprintf(`SELECT source_uuid FROM %s WHERE uuid = ?`, s.table("link")), id)
}

func (s *SQLite) queryUUIDs(ctx context.Context, stmt string, id uuid.UUID) ([]uuid.UUID, apperrors.Error) {
	rows, err := s.conn(ctx).QueryContext(ctx, stmt, id.String())
	if err != nil {
		return nil, ErrBackend.MsgErr("link query failed", err)
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, ErrBackend.MsgErr("failed to scan link row", err)
		}
		u, perr := uuid.Parse(raw)
		if perr != nil {
			return nil, ErrBackend.MsgErr("invalid uuid stored in link table", perr)
		}
		out = append(out, u)
	}
	return out, nil
}

func scanSQLRows(rows *sql.Rows) ([]Row, apperrors.Error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, ErrBackend.MsgErr("failed to read result columns", err)
	}
	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, ErrBackend.MsgErr("failed to scan result row", err)
		}
		row := make(Row, len(cols))
		for i, name := range cols {
			row[name] = wrapScannedSQLite(vals[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrBackend.MsgErr("row iteration failed", err)
	}
	return out, nil
}

func wrapScannedSQLite(v any) values.Value {
	if v == nil {
		return values.Null(values.KindText)
	}
	switch t := v.(type) {
	case int64:
		return values.NewLong64(t)
	case float64:
		return values.NewReal(t)
	case string:
		return values.NewText(t)
	case []byte:
		return values.NewText(string(t))
	default:
		return values.NewText(fmt.Sprintf("%v", t))
	}
}

var _ Backend = (*SQLite)(nil)
