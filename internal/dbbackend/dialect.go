package dbbackend

import "fmt"

// Dialect isolates the places where the shared codegen layer needs
// backend-specific SQL for the two concrete backends (postgresql,
// sqlite+spatialite): parameter placeholder syntax, spatial function
// names, timestamp subtraction, the current-timestamp expression, and
// TEXT collation. DDL, group-by binning and row scanning are written
// separately in each backend.
type Dialect interface {
	Name() string
	// Placeholder returns the positional-parameter marker for the n'th
	// bound argument (1-based), e.g. "$1" for postgres, "?" for sqlite.
	Placeholder(n int) string
	// GeomFromText wraps a WKT text expression (itself already a bound
	// placeholder or literal) in the dialect's geometry constructor.
	GeomFromText(wktExpr string) string
	Covers(a, b string) string
	Intersects(a, b string) string
	Distance(a, b string) string
	// TimestampDiffSeconds renders a-b (both Timestamp-valued SQL
	// expressions) as a Real number of seconds, per spec §4.4.
	TimestampDiffSeconds(a, b string) string
	Now() string
	// TextCollation is the clause the postgres backend appends to TEXT
	// column DDL to force a locale-independent, byte-order comparison
	// (spec §4.5). The sqlite backend does not append it; BINARY is
	// already SQLite's default collation.
	TextCollation() string
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgresql" }
func (postgresDialect) Placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
func (postgresDialect) GeomFromText(wktExpr string) string {
	return fmt.Sprintf("ST_GeomFromText(%s, 4326)", wktExpr)
}
func (postgresDialect) Covers(a, b string) string     { return fmt.Sprintf("ST_Covers(%s, %s)", a, b) }
func (postgresDialect) Intersects(a, b string) string { return fmt.Sprintf("ST_Intersects(%s, %s)", a, b) }
func (postgresDialect) Distance(a, b string) string   { return fmt.Sprintf("ST_Distance(%s, %s)", a, b) }
func (postgresDialect) TimestampDiffSeconds(a, b string) string {
	return fmt.Sprintf("EXTRACT(EPOCH FROM (%s) - (%s))", a, b)
}
func (postgresDialect) Now() string           { return "NOW()" }
func (postgresDialect) TextCollation() string { return `COLLATE "C"` }

// PostgresDialect is the Dialect used by the postgresql backend.
var PostgresDialect Dialect = postgresDialect{}

type sqliteDialect struct{}

func (sqliteDialect) Name() string              { return "sqlite" }
func (sqliteDialect) Placeholder(n int) string   { return "?" }
func (sqliteDialect) GeomFromText(wktExpr string) string {
	return fmt.Sprintf("ST_GeomFromText(%s, 4326)", wktExpr)
}
func (sqliteDialect) Covers(a, b string) string     { return fmt.Sprintf("ST_Covers(%s, %s)", a, b) }
func (sqliteDialect) Intersects(a, b string) string { return fmt.Sprintf("ST_Intersects(%s, %s)", a, b) }
func (sqliteDialect) Distance(a, b string) string   { return fmt.Sprintf("ST_Distance(%s, %s)", a, b) }

// TimestampDiffSeconds rounds to millisecond precision: the embedded
// backend's timestamp arithmetic is millisecond-capped (spec §4.4), unlike
// the microsecond precision the values package carries in memory.
func (sqliteDialect) TimestampDiffSeconds(a, b string) string {
	return fmt.Sprintf("(ROUND((julianday(%s) - julianday(%s)) * 86400000.0) / 1000.0)", a, b)
}
func (sqliteDialect) Now() string           { return "strftime('%Y-%m-%dT%H:%M:%f', 'now')" }
func (sqliteDialect) TextCollation() string { return `COLLATE BINARY` }

// SQLiteDialect is the Dialect used by the sqlite+spatialite backend.
var SQLiteDialect Dialect = sqliteDialect{}
