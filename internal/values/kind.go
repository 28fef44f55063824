// Package values implements Muninn's nine scalar/compound data types: the
// lexical literal form, canonical in-memory form, comparison order, and
// backend-agnostic formatting each type needs. Backend-specific
// serialization (SQL placeholders, column types) lives in internal/dbbackend;
// this package only knows about the type system itself.
package values

import "fmt"

// Kind identifies one of the nine Muninn data types.
type Kind int

const (
	KindBoolean Kind = iota
	KindInteger32
	KindLong64
	KindReal
	KindText
	KindTimestamp
	KindUUID
	KindGeometry
	KindJSON
)

func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindInteger32:
		return "integer32"
	case KindLong64:
		return "long64"
	case KindReal:
		return "real"
	case KindText:
		return "text"
	case KindTimestamp:
		return "timestamp"
	case KindUUID:
		return "uuid"
	case KindGeometry:
		return "geometry"
	case KindJSON:
		return "json"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Orderable reports whether two values of this kind can be compared with
// < <= > >=. Boolean, UUID, Geometry and JSON are excluded per the
// expression language's type rules.
func (k Kind) Orderable() bool {
	switch k {
	case KindBoolean, KindUUID, KindGeometry, KindJSON:
		return false
	default:
		return true
	}
}

// Equatable reports whether two values of this kind can be compared with
// == !=. Every kind except Geometry supports equality; JSON compares only
// by structural equality of its canonical form.
func (k Kind) Equatable() bool {
	return k != KindGeometry
}

// Arithmetic reports whether this kind participates in arithmetic: the
// numeric kinds in +, -, *, /, and Timestamp in Timestamp - Timestamp only.
func (k Kind) Arithmetic() bool {
	switch k {
	case KindInteger32, KindLong64, KindReal, KindTimestamp:
		return true
	default:
		return false
	}
}

// Listable reports whether this kind may appear as an element type in an
// "in"/"not in" predicate list.
func (k Kind) Listable() bool {
	switch k {
	case KindBoolean, KindUUID, KindTimestamp, KindGeometry, KindJSON:
		return false
	default:
		return true
	}
}
