package cliparse_test

import (
	"testing"

	"github.com/stcorp/muninn/internal/cmd/cliparse"
	"github.com/stcorp/muninn/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterEmptyStringReturnsNilNode(t *testing.T) {
	node, err := cliparse.Filter("", schema.NewRegistry())
	require.Nil(t, err)
	assert.Nil(t, node)
}

func TestFilterParsesAndAnalyzesAgainstCoreSchema(t *testing.T) {
	node, err := cliparse.Filter(`product_name == "alpha.dat"`, schema.NewRegistry())
	require.Nil(t, err)
	assert.NotNil(t, node)
}

func TestFilterRejectsUnknownField(t *testing.T) {
	_, err := cliparse.Filter(`no_such_field == 1`, schema.NewRegistry())
	assert.NotNil(t, err)
}

func TestFilterRejectsFreeParameter(t *testing.T) {
	_, err := cliparse.Filter(`product_name == @name`, schema.NewRegistry())
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "undefined parameter")
}

func TestAssignmentSplitsNamespaceFieldValue(t *testing.T) {
	ns, field, value, err := cliparse.Assignment("geo.footprint=POINT(1 2)")
	require.Nil(t, err)
	assert.Equal(t, "geo", ns)
	assert.Equal(t, "footprint", field)
	assert.Equal(t, "POINT(1 2)", value)
}

func TestAssignmentRejectsMissingEquals(t *testing.T) {
	_, _, _, err := cliparse.Assignment("geo.footprint")
	assert.NotNil(t, err)
}

func TestAssignmentRejectsMissingDot(t *testing.T) {
	_, _, _, err := cliparse.Assignment("footprint=1")
	assert.NotNil(t, err)
}

func TestPropertiesBuildsContainerFromAssignments(t *testing.T) {
	props, err := cliparse.Properties([]string{"geo.footprint=POINT(1 2)", "geo.name=alpha"})
	require.Nil(t, err)
	v, ok := props.Get("geo", "footprint")
	require.True(t, ok)
	assert.Equal(t, "POINT(1 2)", v.Text())
}

func TestOrderTermsParsesDirections(t *testing.T) {
	terms, err := cliparse.OrderTerms([]string{"size:desc", "product_name", "hash:asc"})
	require.Nil(t, err)
	require.Len(t, terms, 3)
	assert.True(t, terms[0].Desc)
	assert.False(t, terms[1].Desc)
	assert.False(t, terms[2].Desc)
}

func TestOrderTermsRejectsInvalidDirection(t *testing.T) {
	_, err := cliparse.OrderTerms([]string{"size:sideways"})
	assert.NotNil(t, err)
}

func TestGroupByKeysParsesBin(t *testing.T) {
	keys := cliparse.GroupByKeys([]string{"archive_date.year", "product_type"})
	require.Len(t, keys, 2)
	assert.Equal(t, "archive_date", keys[0].Field)
	assert.Equal(t, "year", string(keys[0].Bin))
	assert.Equal(t, "product_type", keys[1].Field)
}

func TestAggregatesParsesFuncFieldAlias(t *testing.T) {
	aggs, err := cliparse.Aggregates([]string{"max:size:max_size", "validity_duration:dur"})
	require.Nil(t, err)
	require.Len(t, aggs, 2)
	assert.Equal(t, "max_size", aggs[0].Alias)
	assert.True(t, aggs[1].ValidityDuration)
	assert.Equal(t, "dur", aggs[1].Alias)
}

func TestAggregatesRejectsMalformed(t *testing.T) {
	_, err := cliparse.Aggregates([]string{"max:size"})
	assert.NotNil(t, err)
}
