package schema

import (
	"github.com/stcorp/muninn/internal/apperrors"
)

// CoreNamespaceName is the fixed name of the built-in core namespace.
const CoreNamespaceName = "core"

// Namespace is a named, ordered set of fields. Every namespace other than
// "core" implicitly carries a "uuid" primary/foreign key field; extensions
// must not redeclare it (Field "uuid" is rejected by Validate).
type Namespace struct {
	Name   string
	Fields []Field
}

// ErrNamespace is the root of namespace-validation failures.
var ErrNamespace apperrors.Error = apperrors.ErrSchema.Msg("invalid namespace")

// Validate checks name format, field format, and field-name collisions. It
// does not check for collisions against other already-registered
// namespaces; Registry.Register does that.
func (n Namespace) Validate() apperrors.Error {
	if !ValidIdentifier(n.Name) {
		return ErrNamespace.Msg("namespace name " + inQuotes(n.Name) + " must be a lowercase identifier starting with a letter")
	}
	seen := make(map[string]bool, len(n.Fields))
	for _, f := range n.Fields {
		if n.Name != CoreNamespaceName && f.Name == "uuid" {
			return ErrNamespace.Msg("namespace " + inQuotes(n.Name) + " must not redeclare the implicit \"uuid\" key")
		}
		if err := f.Validate(); err != nil {
			return ErrNamespace.Err(err)
		}
		if seen[f.Name] {
			return ErrNamespace.Msg("duplicate field " + inQuotes(f.Name) + " in namespace " + inQuotes(n.Name))
		}
		seen[f.Name] = true
	}
	return nil
}

// Field looks up a field by name, returning ok=false if absent.
func (n Namespace) Field(name string) (Field, bool) {
	for _, f := range n.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// IndexedFields returns the subset of fields marked Indexed, in declaration
// order, for backends to materialize as indices.
func (n Namespace) IndexedFields() []Field {
	var out []Field
	for _, f := range n.Fields {
		if f.Indexed {
			out = append(out, f)
		}
	}
	return out
}
