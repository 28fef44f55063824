package properties

import "github.com/stcorp/muninn/internal/values"

// Diff computes the shallow difference needed to turn before into after: a
// Container containing only the namespaces/fields that changed. A
// namespace present in before but absent from after is recorded as
// Removed. A namespace present in after but absent (or with different
// field values) from before contributes only the changed fields — fields
// unchanged between before and after are omitted, so callers can tell
// "update_properties touched this field" from "field happens to have the
// same value".
func Diff(before, after *Container) *Container {
	out := New()
	for name, bns := range before.namespaces {
		if bns.Removed {
			continue
		}
		ans, ok := after.namespaces[name]
		if !ok || ans.Removed {
			out.namespaces[name] = Namespace{Removed: true}
		}
	}
	for name, ans := range after.namespaces {
		if ans.Removed {
			continue
		}
		bns := before.namespaces[name]
		changed := make(map[string]struct{})
		for f, av := range ans.Fields {
			bv, existed := bns.Fields[f]
			if !existed || !bv.Equal(av) {
				changed[f] = struct{}{}
			}
		}
		if len(changed) == 0 {
			continue
		}
		ns := out.namespaces[name]
		if ns.Fields == nil {
			ns.Fields = make(map[string]values.Value)
		}
		for f := range changed {
			ns.Fields[f] = ans.Fields[f]
		}
		out.namespaces[name] = ns
	}
	return out
}
