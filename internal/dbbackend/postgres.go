package dbbackend

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/expr"
	"github.com/stcorp/muninn/internal/schema"
	"github.com/stcorp/muninn/internal/values"
)

// Postgres is the postgresql+PostGIS implementation of Backend, built on
// pgx/v5's connection pool.
type Postgres struct {
	pool        *pgxpool.Pool
	tablePrefix string
	namespaces  map[string]schema.Namespace
}

// NewPostgres opens a connection pool against connString. The pool is
// created lazily-connected: no network round trip happens until the first
// query (spec §5's "connections are created lazily" rule).
func NewPostgres(ctx context.Context, connString, tablePrefix string) (*Postgres, apperrors.Error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, ErrBackend.MsgErr("invalid postgresql connection string", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, ErrBackend.MsgErr("failed to create postgresql connection pool", err)
	}
	return &Postgres{pool: pool, tablePrefix: tablePrefix, namespaces: map[string]schema.Namespace{}}, nil
}

func (p *Postgres) Dialect() Dialect { return PostgresDialect }

func (p *Postgres) table(name string) string { return p.tablePrefix + name }

// Prepare creates the core, tag, and link tables plus one table per
// registered namespace, with indices on every field the namespace marks
// Indexed and a GIST spatial index on geometry columns.
func (p *Postgres) Prepare(ctx context.Context, sch Schema) apperrors.Error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			uuid UUID PRIMARY KEY,
			active BOOLEAN NOT NULL,
			hash TEXT %s,
			size BIGINT,
			metadata_date TIMESTAMPTZ NOT NULL,
			archive_date TIMESTAMPTZ,
			archive_path TEXT %s,
			product_type TEXT NOT NULL %s,
			product_name TEXT NOT NULL %s,
			physical_name TEXT NOT NULL %s,
			validity_start TIMESTAMPTZ,
			validity_stop TIMESTAMPTZ,
			creation_date TIMESTAMPTZ,
			footprint GEOMETRY(GEOMETRY, 4326),
			remote_url TEXT %s,
			UNIQUE (product_type, product_name),
			UNIQUE (archive_path, physical_name)
		)`, p.table("core"), p.dialectCollation(), p.dialectCollation(), p.dialectCollation(), p.dialectCollation(), p.dialectCollation(), p.dialectCollation()),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_footprint_gix ON %s USING GIST (footprint)`, p.table("core"), p.table("core")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL,
			uuid UUID NOT NULL REFERENCES %s(uuid) ON DELETE CASCADE,
			tag TEXT NOT NULL,
			PRIMARY KEY (uuid, tag)
		)`, p.table("tag"), p.table("core")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL,
			uuid UUID NOT NULL REFERENCES %s(uuid) ON DELETE CASCADE,
			source_uuid UUID NOT NULL REFERENCES %s(uuid) ON DELETE CASCADE,
			PRIMARY KEY (uuid, source_uuid)
		)`, p.table("link"), p.table("core"), p.table("core")),
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return ErrBackend.MsgErr("failed to prepare core schema", err)
		}
	}
	for _, ns := range sch.Namespaces {
		if err := p.prepareNamespace(ctx, ns); err != nil {
			return err
		}
		p.namespaces[ns.Name] = ns
	}
	return nil
}

func (p *Postgres) dialectCollation() string { return PostgresDialect.TextCollation() }

func (p *Postgres) prepareNamespace(ctx context.Context, ns schema.Namespace) apperrors.Error {
	var cols []string
	var indices []string
	for _, f := range ns.Fields {
		if f.Name == "uuid" {
			continue
		}
		colType := pgColumnType(f.Type)
		col := fmt.Sprintf("%s %s", f.Name, colType)
		if f.Type == values.KindText {
			col += " " + p.dialectCollation()
		}
		if !f.Optional {
			col += " NOT NULL"
		}
		cols = append(cols, col)
		if f.Indexed {
			if f.Type == values.KindGeometry {
				indices = append(indices, fmt.Sprintf(
					"CREATE INDEX IF NOT EXISTS %s_%s_gix ON %s USING GIST (%s)",
					p.table(ns.Name), f.Name, p.table(ns.Name), f.Name))
			} else {
				indices = append(indices, fmt.Sprintf(
					"CREATE INDEX IF NOT EXISTS %s_%s_idx ON %s (%s)",
					p.table(ns.Name), f.Name, p.table(ns.Name), f.Name))
			}
		}
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		uuid UUID PRIMARY KEY REFERENCES %s(uuid) ON DELETE CASCADE,
		%s
	)`, p.table(ns.Name), p.table("core"), strings.Join(cols, ",\n\t\t"))
	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return ErrBackend.MsgErr(fmt.Sprintf("failed to prepare namespace table %q", ns.Name), err)
	}
	for _, idx := range indices {
		if _, err := p.pool.Exec(ctx, idx); err != nil {
			return ErrBackend.MsgErr(fmt.Sprintf("failed to create index on namespace %q", ns.Name), err)
		}
	}
	return nil
}

func pgColumnType(k values.Kind) string {
	switch k {
	case values.KindBoolean:
		return "BOOLEAN"
	case values.KindInteger32:
		return "INTEGER"
	case values.KindLong64:
		return "BIGINT"
	case values.KindReal:
		return "DOUBLE PRECISION"
	case values.KindText:
		return "TEXT"
	case values.KindTimestamp:
		return "TIMESTAMPTZ"
	case values.KindUUID:
		return "UUID"
	case values.KindGeometry:
		return "GEOMETRY(GEOMETRY, 4326)"
	case values.KindJSON:
		return "JSONB"
	default:
		return "TEXT"
	}
}

// Destroy drops every table this backend created, core last (the others
// cascade off it but dropping explicitly keeps intent obvious).
func (p *Postgres) Destroy(ctx context.Context) apperrors.Error {
	for ns := range p.namespaces {
		if _, err := p.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", p.table(ns))); err != nil {
			return ErrBackend.MsgErr(fmt.Sprintf("failed to drop namespace table %q", ns), err)
		}
	}
	for _, t := range []string{"link", "tag", "core"} {
		if _, err := p.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", p.table(t))); err != nil {
			return ErrBackend.MsgErr(fmt.Sprintf("failed to drop table %q", t), err)
		}
	}
	p.pool.Close()
	return nil
}

type pgTxKey struct{}

func (p *Postgres) WithTransaction(ctx context.Context, fn func(ctx context.Context) apperrors.Error) apperrors.Error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return ErrBackend.MsgErr("failed to begin transaction", err)
	}
	txCtx := context.WithValue(ctx, pgTxKey{}, tx)
	if aerr := fn(txCtx); aerr != nil {
		_ = tx.Rollback(ctx)
		return aerr
	}
	if err := tx.Commit(ctx); err != nil {
		return ErrBackend.MsgErr("failed to commit transaction", err)
	}
	return nil
}

// pgExecer is the surface *pgxpool.Pool and pgx.Tx share; db() picks
// whichever is in play so statements issued inside WithTransaction are
// scoped to that transaction.
type pgExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (p *Postgres) db(ctx context.Context) pgExecer {
	if tx, ok := ctx.Value(pgTxKey{}).(pgx.Tx); ok {
		return tx
	}
	return p.pool
}

func (p *Postgres) InsertCore(ctx context.Context, row CoreRow) apperrors.Error {
	const stmt = `INSERT INTO %s
		(uuid, active, hash, size, metadata_date, archive_date, archive_path,
		 product_type, product_name, physical_name, validity_start, validity_stop,
		 creation_date, footprint, remote_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,ST_GeomFromText($14,4326),$15)`
	var footprintWKT *string
	if row.Footprint != nil {
		wkt := values.FormatWKT(*row.Footprint)
		footprintWKT = &wkt
	}
	_, err := p.db(ctx).Exec(ctx, fmt.Sprintf(stmt, p.table("core")),
		row.UUID, row.Active, row.Hash, row.Size, row.MetadataDate, row.ArchiveDate, row.ArchivePath,
		row.ProductType, row.ProductName, row.PhysicalName, row.ValidityStart, row.ValidityStop,
		row.CreationDate, footprintWKT, row.RemoteURL)
	if err != nil {
		return ErrBackend.MsgErr("failed to insert core row", err)
	}
	return nil
}

func (p *Postgres) InsertNamespace(ctx context.Context, namespace string, id uuid.UUID, fields map[string]values.Value) apperrors.Error {
	cols := []string{"uuid"}
	placeholders := []string{"$1"}
	args := []any{id}
	i := 2
	for name, v := range fields {
		cols = append(cols, name)
		if v.Kind() == values.KindGeometry {
			placeholders = append(placeholders, fmt.Sprintf("ST_GeomFromText($%d,4326)", i))
			args = append(args, values.FormatWKT(v.Geometry()))
		} else {
			placeholders = append(placeholders, fmt.Sprintf("$%d", i))
			args = append(args, scalarArg(v))
		}
		i++
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		p.table(namespace), strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if _, err := p.db(ctx).Exec(ctx, stmt, args...); err != nil {
		return ErrBackend.MsgErr(fmt.Sprintf("failed to insert namespace row for %q", namespace), err)
	}
	return nil
}

func scalarArg(v values.Value) any {
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
		return v.Timestamp()
	case values.KindUUID:
		return v.UUID()
	case values.KindJSON:
		return v.JSONText()
	default:
		return v.Text()
	}
}

func (p *Postgres) Update(ctx context.Context, namespace string, fields map[string]values.Value, where expr.Node) (int64, apperrors.Error) {
	lowered, lerr := Lower(where, PostgresDialect)
	if lerr != nil {
		return 0, lerr
	}
	var sets []string
	args := append([]any{}, lowered.Args...)
	i := len(args) + 1
	for name, v := range fields {
		if v.Kind() == values.KindGeometry {
			sets = append(sets, fmt.Sprintf("%s = ST_GeomFromText($%d,4326)", name, i))
			args = append(args, values.FormatWKT(v.Geometry()))
		} else {
			sets = append(sets, fmt.Sprintf("%s = $%d", name, i))
			args = append(args, scalarArg(v))
		}
		i++
	}
	table := "core"
	if namespace != "" && namespace != "core" {
		table = namespace
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s", p.table(table), strings.Join(sets, ", "), lowered.SQL)
	tag, err := p.db(ctx).Exec(ctx, stmt, args...)
	if err != nil {
		return 0, ErrBackend.MsgErr("failed to update rows", err)
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) Delete(ctx context.Context, where expr.Node) (int64, apperrors.Error) {
	lowered, lerr := Lower(where, PostgresDialect)
	if lerr != nil {
		return 0, lerr
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s", p.table("core"), lowered.SQL)
	tag, err := p.db(ctx).Exec(ctx, stmt, lowered.Args...)
	if err != nil {
		return 0, ErrBackend.MsgErr("failed to delete rows", err)
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) Search(ctx context.Context, filter expr.Node, orderBy []OrderTerm, limit int, projection []string) ([]Row, apperrors.Error) {
	cols := "core.*"
	if len(projection) > 0 {
		cols = strings.Join(projection, ", ")
	}
	stmt := fmt.Sprintf("SELECT %s FROM %s core", cols, p.table("core"))
	var args []any
	if filter != nil {
		for _, ns := range RequiredNamespaces(filter) {
			stmt += fmt.Sprintf(" JOIN %s %s ON %s.uuid = core.uuid", p.table(ns), ns, ns)
		}
		lowered, lerr := Lower(filter, PostgresDialect)
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
	logQuery(ctx, stmt)
	rows, err := p.db(ctx).Query(ctx, stmt, args...)
	if err != nil {
		return nil, ErrBackend.MsgErr("search query failed", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func (p *Postgres) Count(ctx context.Context, filter expr.Node) (int64, apperrors.Error) {
	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s core", p.table("core"))
	var args []any
	if filter != nil {
		for _, ns := range RequiredNamespaces(filter) {
			stmt += fmt.Sprintf(" JOIN %s %s ON %s.uuid = core.uuid", p.table(ns), ns, ns)
		}
		lowered, lerr := Lower(filter, PostgresDialect)
		if lerr != nil {
			return 0, lerr
		}
		stmt += " WHERE " + lowered.SQL
		args = lowered.Args
	}
	var count int64
	if err := p.db(ctx).QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, ErrBackend.MsgErr("count query failed", err)
	}
	return count, nil
}

func (p *Postgres) Summary(ctx context.Context, req SummaryRequest) ([]Row, apperrors.Error) {
	var selectCols []string
	var groupCols []string
	for _, g := range req.GroupBy {
		col := groupByExpr(g, PostgresDialect)
		selectCols = append(selectCols, col+" AS "+groupAlias(g))
		groupCols = append(groupCols, col)
	}
	if req.GroupByTag {
		selectCols = append(selectCols, "tag.tag AS tag")
		groupCols = append(groupCols, "tag.tag")
	}
	for _, a := range req.Aggregates {
		selectCols = append(selectCols, aggregateExpr(a)+" AS "+a.Alias)
	}
	stmt := fmt.Sprintf("SELECT %s FROM %s core", strings.Join(selectCols, ", "), p.table("core"))
	if req.GroupByTag {
		stmt += fmt.Sprintf(" JOIN %s tag ON tag.uuid = core.uuid", p.table("tag"))
	}
	var args []any
	if req.Filter != nil {
		for _, ns := range RequiredNamespaces(req.Filter) {
			stmt += fmt.Sprintf(" JOIN %s %s ON %s.uuid = core.uuid", p.table(ns), ns, ns)
		}
		lowered, lerr := Lower(req.Filter, PostgresDialect)
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
		lowered, lerr := Lower(req.Having, PostgresDialect)
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
	logQuery(ctx, stmt)
	rows, err := p.db(ctx).Query(ctx, stmt, args...)
	if err != nil {
		return nil, ErrBackend.MsgErr("summary query failed", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func groupByExpr(g GroupByKey, d Dialect) string {
	if g.Bin == BinNone {
		return "core." + g.Field
	}
	switch g.Bin {
	case BinYear:
		return fmt.Sprintf("date_trunc('year', core.%s)", g.Field)
	case BinMonth:
		return fmt.Sprintf("date_trunc('month', core.%s)", g.Field)
	case BinYearMonth:
		return fmt.Sprintf("to_char(core.%s, 'YYYY-MM')", g.Field)
	case BinDate:
		return fmt.Sprintf("date_trunc('day', core.%s)", g.Field)
	case BinDay:
		return fmt.Sprintf("extract(day from core.%s)", g.Field)
	case BinHour:
		return fmt.Sprintf("date_trunc('hour', core.%s)", g.Field)
	case BinMinute:
		return fmt.Sprintf("date_trunc('minute', core.%s)", g.Field)
	case BinSecond:
		return fmt.Sprintf("date_trunc('second', core.%s)", g.Field)
	case BinTime:
		return fmt.Sprintf("core.%s::time", g.Field)
	default:
		return "core." + g.Field
	}
}

func groupAlias(g GroupByKey) string {
	if g.Bin == BinNone {
		return g.Field
	}
	return fmt.Sprintf("%s_%s", g.Field, g.Bin)
}

func aggregateExpr(a Aggregate) string {
	if a.ValidityDuration {
		return "(core.validity_stop - core.validity_start)"
	}
	return fmt.Sprintf("%s(core.%s)", strings.ToUpper(string(a.Func)), a.Field)
}

func (p *Postgres) Link(ctx context.Context, id, sourceID uuid.UUID) apperrors.Error {
	stmt := fmt.Sprintf(`INSERT INTO %s (uuid, source_uuid) VALUES ($1,$2) ON CONFLICT DO NOTHING`, p.table("link"))
	if id == sourceID {
		return ErrBackend.Msg("a product cannot link to itself")
	}
	if _, err := p.db(ctx).Exec(ctx, stmt, id, sourceID); err != nil {
		return ErrBackend.MsgErr("failed to insert link", err)
	}
	return nil
}

func (p *Postgres) Unlink(ctx context.Context, id, sourceID uuid.UUID) apperrors.Error {
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE uuid = $1 AND source_uuid = $2`, p.table("link"))
	if _, err := p.db(ctx).Exec(ctx, stmt, id, sourceID); err != nil {
		return ErrBackend.MsgErr("failed to delete link", err)
	}
	return nil
}

func (p *Postgres) Tag(ctx context.Context, id uuid.UUID, tag string) apperrors.Error {
	stmt := fmt.Sprintf(`INSERT INTO %s (uuid, tag) VALUES ($1,$2) ON CONFLICT DO NOTHING`, p.table("tag"))
	if _, err := p.db(ctx).Exec(ctx, stmt, id, tag); err != nil {
		return ErrBackend.MsgErr("failed to insert tag", err)
	}
	return nil
}

func (p *Postgres) Untag(ctx context.Context, id uuid.UUID, tag string) apperrors.Error {
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE uuid = $1 AND tag = $2`, p.table("tag"))
	if _, err := p.db(ctx).Exec(ctx, stmt, id, tag); err != nil {
		return ErrBackend.MsgErr("failed to delete tag", err)
	}
	return nil
}

func (p *Postgres) ListTags(ctx context.Context, id uuid.UUID) ([]string, apperrors.Error) {
	stmt := fmt.Sprintf(`SELECT tag FROM %s WHERE uuid = $1 ORDER BY tag`, p.table("tag"))
	rows, err := p.db(ctx).Query(ctx, stmt, id)
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

func (p *Postgres) DerivedOf(ctx context.Context, id uuid.UUID) ([]uuid.UUID, apperrors.Error) {
	stmt := fmt.Sprintf(`SELECT uuid FROM %s WHERE source_uuid = $1`, p.table("link"))
	return p.queryUUIDs(ctx, stmt, id)
}

func (p *Postgres) SourcesOf(ctx context.Context, id uuid.UUID) ([]uuid.UUID, apperrors.Error) {
	stmt := fmt.Sprintf(`SELECT source_uuid FROM %s WHERE uuid = $1`, p.table("link"))
	return p.queryUUIDs(ctx, stmt, id)
}

func (p *Postgres) queryUUIDs(ctx context.Context, stmt string, id uuid.UUID) ([]uuid.UUID, apperrors.Error) {
	rows, err := p.db(ctx).Query(ctx, stmt, id)
	if err != nil {
		return nil, ErrBackend.MsgErr("link query failed", err)
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var u uuid.UUID
		if err := rows.Scan(&u); err != nil {
			return nil, ErrBackend.MsgErr("failed to scan link row", err)
		}
		out = append(out, u)
	}
	return out, nil
}

func scanRows(rows pgx.Rows) ([]Row, apperrors.Error) {
	fields := rows.FieldDescriptions()
	var out []Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, ErrBackend.MsgErr("failed to scan result row", err)
		}
		row := make(Row, len(vals))
		for i, v := range vals {
			row[string(fields[i].Name)] = wrapScanned(v)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrBackend.MsgErr("row iteration failed", err)
	}
	return out, nil
}

func wrapScanned(v any) values.Value {
	if v == nil {
		return values.Null(values.KindText)
	}
	switch t := v.(type) {
	case bool:
		return values.NewBoolean(t)
	case int32:
		return values.NewInteger32(t)
	case int64:
		return values.NewLong64(t)
	case float64:
		return values.NewReal(t)
	case string:
		return values.NewText(t)
	default:
		return values.NewText(fmt.Sprintf("%v", t))
	}
}

// logQuery is a small debug aid mirroring the teacher's use of zerolog at
// the persistence boundary.
func logQuery(ctx context.Context, stmt string) {
	log.Ctx(ctx).Debug().Str("sql", stmt).Msg("executing query")
}

var _ Backend = (*Postgres)(nil)
