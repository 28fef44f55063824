// Package cliformat renders dbbackend.Row results and values.Value cells
// as plain text for the reference CLI. spec.md's Non-goals exclude
// rendering results for humans as a modeled concern of the archive core
// itself, so this formatting lives entirely at the CLI edge rather than in
// internal/values.
package cliformat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stcorp/muninn/internal/cascade"
	"github.com/stcorp/muninn/internal/dbbackend"
	"github.com/stcorp/muninn/internal/values"
)

// Value renders a single cell: "null" for an undefined value, otherwise
// the type's natural text form.
func Value(v values.Value) string {
	if v.IsNull() {
		return "null"
	}
	switch v.Kind() {
	case values.KindBoolean:
		return fmt.Sprintf("%t", v.Boolean())
	case values.KindInteger32:
		return fmt.Sprintf("%d", v.Integer32())
	case values.KindLong64:
		return fmt.Sprintf("%d", v.Long64())
	case values.KindReal:
		return fmt.Sprintf("%g", v.Real())
	case values.KindText:
		return v.Text()
	case values.KindTimestamp:
		return v.Timestamp().Format("2006-01-02T15:04:05.000000Z")
	case values.KindUUID:
		return v.UUID().String()
	case values.KindGeometry:
		return values.FormatWKT(v.Geometry())
	case values.KindJSON:
		return v.JSONText()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Row renders one result row as "field=value" pairs in a stable,
// alphabetical field order so output is diffable across runs.
func Row(row dbbackend.Row) string {
	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	sort.Strings(names)

	cells := make([]string, len(names))
	for i, name := range names {
		cells[i] = name + "=" + Value(row[name])
	}
	return strings.Join(cells, " ")
}

// Rows renders one row per line.
func Rows(rows []dbbackend.Row) string {
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = Row(row)
	}
	return strings.Join(lines, "\n")
}

// CascadeResult summarizes a strip/remove's cascade.Result: how many
// products were stripped or removed transitively, and how many cycles the
// engine consumed.
func CascadeResult(r cascade.Result) string {
	s := fmt.Sprintf("cycles=%d stripped=%d removed=%d", r.Cycles, len(r.Stripped), len(r.Removed))
	if r.HitMaxCycles {
		s += " (hit max_cascade_cycles)"
	}
	return s
}
