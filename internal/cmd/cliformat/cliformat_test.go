package cliformat_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stcorp/muninn/internal/cascade"
	"github.com/stcorp/muninn/internal/cmd/cliformat"
	"github.com/stcorp/muninn/internal/dbbackend"
	"github.com/stcorp/muninn/internal/values"
	"github.com/stretchr/testify/assert"
)

func TestValueRendersNullAsNull(t *testing.T) {
	assert.Equal(t, "null", cliformat.Value(values.Null(values.KindText)))
}

func TestValueRendersEachKind(t *testing.T) {
	assert.Equal(t, "true", cliformat.Value(values.NewBoolean(true)))
	assert.Equal(t, "5", cliformat.Value(values.NewLong64(5)))
	assert.Equal(t, "hello", cliformat.Value(values.NewText("hello")))
	id := uuid.New()
	assert.Equal(t, id.String(), cliformat.Value(values.NewUUID(id)))
	assert.Equal(t, "7", cliformat.Value(values.NewInteger32(7)))
	assert.Equal(t, "2.5", cliformat.Value(values.NewReal(2.5)))
	assert.Equal(t, "POINT (30 10)", cliformat.Value(values.NewGeometry(values.Geometry{Type: values.GeomPoint, Points: []values.Point{{X: 30, Y: 10}}})))
	assert.Equal(t, `{"a":1}`, cliformat.Value(values.NewJSON(`{"a":1}`)))
}

func TestRowOrdersFieldsAlphabetically(t *testing.T) {
	row := dbbackend.Row{
		"product_name": values.NewText("alpha.dat"),
		"active":       values.NewBoolean(true),
	}
	assert.Equal(t, "active=true product_name=alpha.dat", cliformat.Row(row))
}

func TestRowsJoinsOneRowPerLine(t *testing.T) {
	rows := []dbbackend.Row{
		{"size": values.NewLong64(5)},
		{"size": values.NewLong64(10)},
	}
	assert.Equal(t, "size=5\nsize=10", cliformat.Rows(rows))
}

func TestValueRendersTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-01T12:00:00.000000Z", cliformat.Value(values.NewTimestamp(ts)))
}

func TestCascadeResultSummarizesCounts(t *testing.T) {
	r := cascade.Result{Stripped: []uuid.UUID{uuid.New()}, Cycles: 3}
	assert.Equal(t, "cycles=3 stripped=1 removed=0", cliformat.CascadeResult(r))
}

func TestCascadeResultFlagsMaxCycles(t *testing.T) {
	r := cascade.Result{Cycles: 25, HitMaxCycles: true}
	assert.Contains(t, cliformat.CascadeResult(r), "hit max_cascade_cycles")
}
