package properties

import "strings"

// ViewNamespaces returns a new container containing only the listed
// namespaces (others are dropped entirely, not marked Removed — this is a
// read projection, not an update diff).
func (c *Container) ViewNamespaces(namespaces []string) *Container {
	want := make(map[string]bool, len(namespaces))
	for _, n := range namespaces {
		want[n] = true
	}
	out := New()
	for name, ns := range c.namespaces {
		if want[name] && !ns.Removed {
			out.namespaces[name] = ns
		}
	}
	return out
}

// ViewFields returns a new container containing only the listed dotted
// field references ("ns.field", or bare "field" meaning "core.field").
func (c *Container) ViewFields(fields []string) *Container {
	out := New()
	for _, ref := range fields {
		ns, field := splitRef(ref)
		if v, ok := c.Get(ns, field); ok {
			out.Set(ns, field, v)
		}
	}
	return out
}

func splitRef(ref string) (namespace, field string) {
	if i := strings.IndexByte(ref, '.'); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	return "core", ref
}
