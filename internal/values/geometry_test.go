package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWKTPoint(t *testing.T) {
	g, err := ParseWKT("POINT (30 10)")
	require.Nil(t, err)
	assert.Equal(t, GeomPoint, g.Type)
	assert.Equal(t, Point{X: 30, Y: 10}, g.Points[0])
	assert.Equal(t, "POINT (30 10)", FormatWKT(g))
}

func TestParseWKTPolygonRequiresClosedRing(t *testing.T) {
	_, err := ParseWKT("POLYGON ((30 10, 40 40, 20 40, 10 20))")
	assert.NotNil(t, err)

	g, err := ParseWKT("POLYGON ((30 10, 40 40, 20 40, 10 20, 30 10))")
	require.Nil(t, err)
	assert.Equal(t, GeomPolygon, g.Type)
	assert.Len(t, g.Polygons[0][0], 5)
}

func TestParseWKTEmpty(t *testing.T) {
	g, err := ParseWKT("MULTIPOLYGON EMPTY")
	require.Nil(t, err)
	assert.True(t, g.Empty)
	assert.Equal(t, "MULTIPOLYGON EMPTY", FormatWKT(g))
}

func TestParseWKTMultiPoint(t *testing.T) {
	g, err := ParseWKT("MULTIPOINT ((10 40), (40 30))")
	require.Nil(t, err)
	assert.Len(t, g.Points, 2)
}
