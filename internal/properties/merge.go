package properties

import "github.com/stcorp/muninn/internal/values"

// Merge deep-merges other into a clone of c and returns the result: for
// each namespace in other, a Removed marker deletes the namespace in the
// result outright; otherwise individual fields from other overwrite fields
// of the same name in c, and fields present only in c are preserved. This
// implements the partial-update semantics update_properties relies on
// (spec §4.3, §4.8 "Update / Rebuild").
func Merge(c, other *Container) *Container {
	out := c.Clone()
	for name, ons := range other.namespaces {
		if ons.Removed {
			out.namespaces[name] = Namespace{Removed: true}
			continue
		}
		cur, ok := out.namespaces[name]
		if !ok || cur.Removed {
			cur = Namespace{Fields: make(map[string]values.Value)}
		}
		if cur.Fields == nil {
			cur.Fields = make(map[string]values.Value)
		}
		for f, v := range ons.Fields {
			cur.Fields[f] = v
		}
		out.namespaces[name] = cur
	}
	return out
}
