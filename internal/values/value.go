package values

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Value is the tagged union over Muninn's nine data types. A Value is
// immutable once constructed. The zero Value is a defined boolean false
// (Kind() == KindBoolean, IsNull() == false); Null(k) builds the
// undefined/NULL value of a kind.
type Value struct {
	kind Kind
	null bool

	b bool
	i int32
	l int64
	r float64
	t string // Text, raw UUID string, raw Geometry WKT, raw JSON text
	ts time.Time
	u  uuid.UUID
	g  Geometry
}

// Null returns the undefined value of the given kind.
func Null(k Kind) Value { return Value{kind: k, null: true} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.null }

func NewBoolean(b bool) Value { return Value{kind: KindBoolean, b: b} }
func (v Value) Boolean() bool { return v.b }

func NewInteger32(i int32) Value { return Value{kind: KindInteger32, i: i} }
func (v Value) Integer32() int32 { return v.i }

func NewLong64(l int64) Value { return Value{kind: KindLong64, l: l} }
func (v Value) Long64() int64 { return v.l }

func NewReal(r float64) Value { return Value{kind: KindReal, r: r} }
func (v Value) Real() float64 { return v.r }

func NewText(s string) Value { return Value{kind: KindText, t: s} }
func (v Value) Text() string { return v.t }

// NewTimestamp constructs a microsecond-precision timestamp value in UTC.
// It truncates t to microseconds itself (time.Time stores nanoseconds;
// Muninn's canonical precision is microseconds).
func NewTimestamp(t time.Time) Value {
	return Value{kind: KindTimestamp, ts: t.Truncate(time.Microsecond).UTC()}
}
func (v Value) Timestamp() time.Time { return v.ts }

func NewUUID(u uuid.UUID) Value { return Value{kind: KindUUID, u: u} }
func (v Value) UUID() uuid.UUID { return v.u }

// AsBoolean implements the rule that a UUID may be treated as a boolean in
// predicates: defined is true, undefined (Nil/NULL) is false.
func (v Value) AsBoolean() bool {
	switch v.kind {
	case KindBoolean:
		return v.b
	case KindUUID:
		return !v.null && v.u != uuid.Nil
	default:
		return !v.null
	}
}

func NewGeometry(g Geometry) Value { return Value{kind: KindGeometry, g: g} }
func (v Value) Geometry() Geometry { return v.g }

// NewJSON stores pre-validated JSON text verbatim; callers are responsible
// for passing canonical/valid JSON (internal/properties does this via
// encoding/json round-tripping before construction).
func NewJSON(raw string) Value { return Value{kind: KindJSON, t: raw} }
func (v Value) JSONText() string { return v.t }

// Equal implements == for every equatable kind. Comparing values of
// mismatched kinds always returns false; callers (the semantic analyzer)
// are expected to have already rejected kind mismatches.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.null || o.null {
		return v.null == o.null
	}
	switch v.kind {
	case KindBoolean:
		return v.b == o.b
	case KindInteger32:
		return v.i == o.i
	case KindLong64:
		return v.l == o.l
	case KindReal:
		return v.r == o.r
	case KindText, KindJSON:
		return v.t == o.t
	case KindTimestamp:
		return v.ts.Equal(o.ts)
	case KindUUID:
		return v.u == o.u
	default:
		return false
	}
}

// Compare implements order comparison for orderable kinds. Returns -1, 0,
// or 1. Panics if the kind is not Orderable(); callers must check first.
func (v Value) Compare(o Value) int {
	if !v.kind.Orderable() {
		panic(fmt.Sprintf("values: kind %s is not orderable", v.kind))
	}
	switch v.kind {
	case KindInteger32:
		return cmpInt(int64(v.i), int64(o.i))
	case KindLong64:
		return cmpInt(v.l, o.l)
	case KindReal:
		return cmpFloat(v.r, o.r)
	case KindText:
		if v.t < o.t {
			return -1
		} else if v.t > o.t {
			return 1
		}
		return 0
	case KindTimestamp:
		if v.ts.Before(o.ts) {
			return -1
		} else if v.ts.After(o.ts) {
			return 1
		}
		return 0
	default:
		panic(fmt.Sprintf("values: kind %s is not orderable", v.kind))
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Sub implements Timestamp - Timestamp => Real seconds, the one
// cross-kind arithmetic rule in the expression language.
func (v Value) Sub(o Value) Value {
	if v.kind != KindTimestamp || o.kind != KindTimestamp {
		panic("values: Sub is only defined between two timestamps")
	}
	return NewReal(v.ts.Sub(o.ts).Seconds())
}
