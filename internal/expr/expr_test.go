package expr

import (
	"testing"

	"github.com/stcorp/muninn/internal/schema"
	"github.com/stcorp/muninn/internal/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeBasic(t *testing.T) {
	toks, err := Tokenize(`geo.population > 100 and not is_defined(geo)`)
	require.Nil(t, err)
	var kinds []TokenKind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Contains(t, kinds, TokGt)
	assert.Contains(t, kinds, TokAnd)
	assert.Contains(t, kinds, TokNot)
	assert.Equal(t, TokEOF, kinds[len(kinds)-1])
}

func TestTokenizeWKTLiteral(t *testing.T) {
	toks, err := Tokenize(`POINT(4.895 52.370)`)
	require.Nil(t, err)
	require.Equal(t, TokWKT, toks[0].Kind)
	assert.Equal(t, "POINT(4.895 52.370)", toks[0].Lit)
}

func TestTokenizeTimestampVsInteger(t *testing.T) {
	toks, err := Tokenize(`2024-01-01 123`)
	require.Nil(t, err)
	assert.Equal(t, TokTimestamp, toks[0].Kind)
	assert.Equal(t, TokInteger, toks[1].Kind)
}

func TestParsePrecedence(t *testing.T) {
	node, err := Parse(`1 + 2 * 3 == 7 and not false`)
	require.Nil(t, err)
	bin, ok := node.(*Binary)
	require.True(t, ok)
	assert.Equal(t, OpAnd, bin.Op)
}

func TestParseNotIn(t *testing.T) {
	node, err := Parse(`status not in ["archived", "purged"]`)
	require.Nil(t, err)
	bin, ok := node.(*Binary)
	require.True(t, ok)
	assert.Equal(t, OpNotIn, bin.Op)
	list, ok := bin.Right.(*ListLiteral)
	require.True(t, ok)
	assert.Len(t, list.Items, 2)
}

func TestParseFunctionCallArity(t *testing.T) {
	_, err := Parse(`is_defined(geo, admin)`)
	assert.NotNil(t, err)
}

func TestParseUnknownFunction(t *testing.T) {
	_, err := Parse(`bogus(geo)`)
	assert.NotNil(t, err)
}

func TestAnalyzeResolvesBareFieldToCoreNamespace(t *testing.T) {
	reg := schema.NewRegistry()
	node, err := Parse(`product_name == "widget"`)
	require.Nil(t, err)

	analysis, aerr := Analyze(node, reg, nil)
	require.Nil(t, aerr)

	bin := analysis.Node.(*Binary)
	ref := bin.Left.(*FieldRef)
	assert.Equal(t, "core", ref.Namespace)
	assert.Equal(t, "product_name", ref.Field)
}

func TestAnalyzeRejectsUnknownNamespace(t *testing.T) {
	reg := schema.NewRegistry()
	node, err := Parse(`geo.country == "NL"`)
	require.Nil(t, err)

	_, aerr := Analyze(node, reg, nil)
	assert.NotNil(t, aerr)
}

func TestAnalyzeReportsFreeParams(t *testing.T) {
	reg := schema.NewRegistry()
	node, err := Parse(`product_name == @name`)
	require.Nil(t, err)

	analysis, aerr := Analyze(node, reg, nil)
	require.Nil(t, aerr)
	assert.Equal(t, []string{"name"}, analysis.FreeParams)
}

func TestAnalyzeBindsParams(t *testing.T) {
	reg := schema.NewRegistry()
	node, err := Parse(`product_name == @name`)
	require.Nil(t, err)

	analysis, aerr := Analyze(node, reg, map[string]values.Value{"name": values.NewText("widget")})
	require.Nil(t, aerr)
	assert.Empty(t, analysis.FreeParams)

	bin := analysis.Node.(*Binary)
	lit := bin.Right.(*Literal)
	assert.Equal(t, "widget", lit.Value.Text())
}

func TestAnalyzeRejectsMatchOnNonText(t *testing.T) {
	reg := schema.NewRegistry()
	node, err := Parse(`size ~= "1%"`)
	require.Nil(t, err)

	_, aerr := Analyze(node, reg, nil)
	assert.NotNil(t, aerr)
}

func TestAnalyzeRejectsOrderComparisonOnBoolean(t *testing.T) {
	reg := schema.NewRegistry()
	node, err := Parse(`active > false`)
	require.Nil(t, err)

	_, aerr := Analyze(node, reg, nil)
	assert.NotNil(t, aerr)
}

func TestAnalyzeRejectsInOnBoolean(t *testing.T) {
	reg := schema.NewRegistry()
	node, err := Parse(`active in [true, false]`)
	require.Nil(t, err)

	_, aerr := Analyze(node, reg, nil)
	assert.NotNil(t, aerr)
}

func TestAnalyzeRejectsArithmeticKindMismatch(t *testing.T) {
	reg := schema.NewRegistry()
	node, err := Parse(`size + product_name == "x"`)
	require.Nil(t, err)

	_, aerr := Analyze(node, reg, nil)
	assert.NotNil(t, aerr)
}

func TestAnalyzeAllowsTimestampSubtraction(t *testing.T) {
	reg := schema.NewRegistry()
	node, err := Parse(`validity_stop - validity_start > 299`)
	require.Nil(t, err)

	analysis, aerr := Analyze(node, reg, nil)
	require.Nil(t, aerr)

	outer := analysis.Node.(*Binary)
	assert.Equal(t, OpGt, outer.Op)
	diff := outer.Left.(*Binary)
	assert.Equal(t, OpSub, diff.Op)
	kind, ok := ResultKind(diff)
	require.True(t, ok)
	assert.Equal(t, values.KindReal, kind)
}

func TestAnalyzeRejectsNonTimestampSubtractionMismatch(t *testing.T) {
	reg := schema.NewRegistry()
	node, err := Parse(`validity_stop - product_name > 0`)
	require.Nil(t, err)

	_, aerr := Analyze(node, reg, nil)
	assert.NotNil(t, aerr)
}

func TestParseAllowsFourArgCoversAndIntersects(t *testing.T) {
	_, err := Parse(`covers(validity_start, validity_stop, archive_date, metadata_date)`)
	assert.Nil(t, err)
	_, err = Parse(`intersects(validity_start, validity_stop, archive_date, metadata_date)`)
	assert.Nil(t, err)
}

func TestAnalyzeRejectsFourArgCoversWithNonTimestampArgs(t *testing.T) {
	reg := schema.NewRegistry()
	node, err := Parse(`covers(validity_start, validity_stop, archive_date, product_name)`)
	require.Nil(t, err)

	_, aerr := Analyze(node, reg, nil)
	assert.NotNil(t, aerr)
}

func TestAnalyzeIsDefinedOnBareNamespace(t *testing.T) {
	reg := schema.NewRegistry()
	require.Nil(t, reg.Register(schema.Namespace{
		Name:   "geo",
		Fields: []schema.Field{{Name: "country", Type: values.KindText}},
	}))
	node, err := Parse(`is_defined(geo)`)
	require.Nil(t, err)

	analysis, aerr := Analyze(node, reg, nil)
	require.Nil(t, aerr)
	fc := analysis.Node.(*FuncCall)
	_, ok := fc.Args[0].(*NamespaceRef)
	assert.True(t, ok)
}
