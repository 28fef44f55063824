package dbbackend

import (
	"time"

	"github.com/google/uuid"
	"github.com/stcorp/muninn/internal/expr"
	"github.com/stcorp/muninn/internal/schema"
	"github.com/stcorp/muninn/internal/values"
)

// Schema is what Prepare needs to create the backend-neutral persisted
// layout described in spec §6: the core table, tag/link tables, and one
// table per registered namespace.
type Schema struct {
	Namespaces []schema.Namespace
}

// CoreRow is one row of the core table (spec §4.2's fifteen fixed fields).
type CoreRow struct {
	UUID          uuid.UUID
	Active        bool
	Hash          *string
	Size          *int64
	MetadataDate  time.Time
	ArchiveDate   *time.Time
	ArchivePath   *string
	ProductType   string
	ProductName   string
	PhysicalName  string
	ValidityStart *time.Time
	ValidityStop  *time.Time
	CreationDate  *time.Time
	Footprint     *values.Geometry
	RemoteURL     *string
}

// OrderTerm is one ORDER BY key: Field prefixed with "+" (ascending,
// default) or "-" (descending) in the caller-facing string form; Desc is
// already resolved by the time it reaches a Backend.
type OrderTerm struct {
	Field string
	Desc  bool
}

// Row is one result row from Search or Summary: core-field columns plus
// any requested namespace/aggregate columns, keyed by their output name.
type Row map[string]values.Value

// AggregateFunc is one of the summary aggregate functions.
type AggregateFunc string

const (
	AggMin AggregateFunc = "min"
	AggMax AggregateFunc = "max"
	AggSum AggregateFunc = "sum"
	AggAvg AggregateFunc = "avg"
)

// Aggregate is one requested summary column, e.g. "max(core.size)" or the
// synthesized "validity_duration := validity_stop - validity_start".
type Aggregate struct {
	Func  AggregateFunc
	Field string
	Alias string
	// ValidityDuration marks the synthesized validity_stop - validity_start
	// aggregate, which ignores Func and Field.
	ValidityDuration bool
}

// TimestampBin is the binning subscript a timestamp group_by key may carry
// (".year", ".month", etc, spec §4.8).
type TimestampBin string

const (
	BinNone      TimestampBin = ""
	BinYear      TimestampBin = "year"
	BinMonth     TimestampBin = "month"
	BinYearMonth TimestampBin = "yearmonth"
	BinDate      TimestampBin = "date"
	BinDay       TimestampBin = "day"
	BinHour      TimestampBin = "hour"
	BinMinute    TimestampBin = "minute"
	BinSecond    TimestampBin = "second"
	BinTime      TimestampBin = "time"
)

// GroupByKey is one summary group_by column.
type GroupByKey struct {
	Field string
	Bin   TimestampBin
}

// SummaryRequest bundles every clause summary() accepts.
type SummaryRequest struct {
	Filter     expr.Node
	Aggregates []Aggregate
	GroupBy    []GroupByKey
	GroupByTag bool
	Having     expr.Node // lowered like Filter (fields render as core.<field>); aggregate aliases are not resolvable
	OrderBy    []OrderTerm
}
