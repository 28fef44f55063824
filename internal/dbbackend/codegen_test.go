package dbbackend

import (
	"testing"

	"github.com/stcorp/muninn/internal/expr"
	"github.com/stcorp/muninn/internal/schema"
	"github.com/stcorp/muninn/internal/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, src string) expr.Node {
	t.Helper()
	node, err := expr.Parse(src)
	require.Nil(t, err)
	analysis, aerr := expr.Analyze(node, schema.NewRegistry(), nil)
	require.Nil(t, aerr)
	return analysis.Node
}

func TestLowerSimpleComparison(t *testing.T) {
	node := analyze(t, `product_name == "widget"`)
	lowered, err := Lower(node, PostgresDialect)
	require.Nil(t, err)
	assert.Equal(t, `(core.product_name = $1)`, lowered.SQL)
	assert.Equal(t, []any{"widget"}, lowered.Args)
}

func TestLowerAndOrNotPrecedence(t *testing.T) {
	node := analyze(t, `active == true and not (size > 10)`)
	lowered, err := Lower(node, PostgresDialect)
	require.Nil(t, err)
	assert.Equal(t, `((core.active = $1) AND (NOT (core.size > $2)))`, lowered.SQL)
	assert.Equal(t, []any{true, int32(10)}, lowered.Args)
}

func TestLowerInList(t *testing.T) {
	node := analyze(t, `product_type in ["L1", "L2"]`)
	lowered, err := Lower(node, PostgresDialect)
	require.Nil(t, err)
	assert.Equal(t, `(core.product_type IN ($1, $2))`, lowered.SQL)
	assert.Equal(t, []any{"L1", "L2"}, lowered.Args)
}

func TestLowerHasTagFuncCall(t *testing.T) {
	node := analyze(t, `has_tag("calibrated")`)
	lowered, err := Lower(node, PostgresDialect)
	require.Nil(t, err)
	assert.Contains(t, lowered.SQL, "EXISTS (SELECT 1 FROM tag")
	assert.Equal(t, []any{"calibrated"}, lowered.Args)
}

func TestLowerSQLiteUsesQuestionMarkPlaceholders(t *testing.T) {
	node := analyze(t, `size > 10 and size < 100`)
	lowered, err := Lower(node, SQLiteDialect)
	require.Nil(t, err)
	assert.Equal(t, `((core.size > ?) AND (core.size < ?))`, lowered.SQL)
}

func TestLowerRejectsUnboundParameter(t *testing.T) {
	parsed, err := expr.Parse(`product_name == @name`)
	require.Nil(t, err)
	analysis, aerr := expr.Analyze(parsed, schema.NewRegistry(), nil)
	require.Nil(t, aerr)

	_, lerr := Lower(analysis.Node, PostgresDialect)
	assert.NotNil(t, lerr)
}

// TestLowerNeqSurfacesNullMatchesSpecScenario mirrors spec §8 scenario 4:
// search("remote_url != \"x\"") must match a row whose remote_url is NULL,
// since plain SQL "<>" against NULL evaluates to NULL and drops the row.
func TestLowerNeqSurfacesNullMatchesSpecScenario(t *testing.T) {
	node := analyze(t, `remote_url != "x"`)
	lowered, err := Lower(node, PostgresDialect)
	require.Nil(t, err)
	assert.Equal(t, `(core.remote_url <> $1 OR core.remote_url IS NULL)`, lowered.SQL)
	assert.Equal(t, []any{"x"}, lowered.Args)
}

// TestLowerTimestampDifferenceMatchesSpecScenario mirrors spec §8 scenario
// 5: validity_stop - validity_start must lower to a Real number of
// seconds, not a raw SQL "-" (interval on postgres, nonsense on sqlite).
func TestLowerTimestampDifferenceMatchesSpecScenario(t *testing.T) {
	node := analyze(t, `validity_stop - validity_start > 299`)

	pg, err := Lower(node, PostgresDialect)
	require.Nil(t, err)
	assert.Equal(t, `(EXTRACT(EPOCH FROM (core.validity_stop) - (core.validity_start)) > $1)`, pg.SQL)

	sqlite, err := Lower(node, SQLiteDialect)
	require.Nil(t, err)
	assert.Equal(t, `((ROUND((julianday(core.validity_stop) - julianday(core.validity_start)) * 86400000.0) / 1000.0) > ?)`, sqlite.SQL)
}

func TestLowerNonTimestampSubtractionStaysPlainArithmetic(t *testing.T) {
	node := analyze(t, `size - 10 > 0`)
	lowered, err := Lower(node, PostgresDialect)
	require.Nil(t, err)
	assert.Equal(t, `((core.size - $1) > $2)`, lowered.SQL)
}

func TestLowerIntervalCovers(t *testing.T) {
	node := analyze(t, `covers(validity_start, validity_stop, archive_date, metadata_date)`)
	lowered, err := Lower(node, PostgresDialect)
	require.Nil(t, err)
	assert.Equal(t, `(core.validity_start <= core.archive_date AND core.validity_stop >= core.metadata_date)`, lowered.SQL)
}

func TestLowerIntervalIntersects(t *testing.T) {
	node := analyze(t, `intersects(validity_start, validity_stop, archive_date, metadata_date)`)
	lowered, err := Lower(node, PostgresDialect)
	require.Nil(t, err)
	assert.Equal(t, `(core.validity_start <= core.metadata_date AND core.archive_date <= core.validity_stop)`, lowered.SQL)
}

func TestRequiredNamespacesCollectsNonCoreFields(t *testing.T) {
	reg := schema.NewRegistry()
	require.Nil(t, reg.Register(schema.Namespace{
		Name:   "geo",
		Fields: []schema.Field{{Name: "country", Type: values.KindText}},
	}))
	parsed, err := expr.Parse(`geo.country == "NL" and product_type == "L1"`)
	require.Nil(t, err)
	analysis, aerr := expr.Analyze(parsed, reg, nil)
	require.Nil(t, aerr)

	namespaces := RequiredNamespaces(analysis.Node)
	assert.Equal(t, []string{"geo"}, namespaces)
}
