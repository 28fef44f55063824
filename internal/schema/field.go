// Package schema implements Muninn's typed, extensible namespace model: the
// built-in "core" namespace, run-time registration of extension namespaces,
// and the validation rules the schema layer owes every other component.
package schema

import (
	"regexp"

	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/values"
)

// Field describes one column of a namespace: its name, data type, and
// whether it is optional and/or indexed.
type Field struct {
	Name     string
	Type     values.Kind
	Optional bool
	Indexed  bool
}

// identifierPattern matches a lowercase identifier starting with a letter,
// the format spec §4.2 mandates for namespace and field names.
var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidIdentifier reports whether s is a lowercase identifier starting with
// a letter.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// ErrField is the root of field-validation failures.
var ErrField apperrors.Error = apperrors.ErrSchema.Msg("invalid field")

// Validate checks a single field definition for structural correctness. It
// does not know about collisions with sibling fields; Namespace.Validate
// does that.
func (f Field) Validate() apperrors.Error {
	if !ValidIdentifier(f.Name) {
		return ErrField.Msg("field name " + inQuotes(f.Name) + " must be a lowercase identifier starting with a letter")
	}
	if f.Name == "uuid" {
		return ErrField.Msg("field name \"uuid\" is reserved for the namespace primary key")
	}
	return nil
}

func inQuotes(s string) string { return "\"" + s + "\"" }
