// Package properties implements the in-memory property container: a
// product's metadata carried as a mapping from namespace name to a
// per-namespace mapping from field name to a typed values.Value, with
// deep-merge, diff, and projection operations (spec §4.3).
package properties

import (
	"sort"

	"github.com/stcorp/muninn/internal/values"
)

// Namespace holds one namespace's fields for a single product. Removed
// marks the "null sentinel": the namespace row should be deleted entirely.
// A Namespace with Removed=false and an empty Fields map means "no change
// recorded for this namespace" when it appears inside a diff.
type Namespace struct {
	Removed bool
	Fields  map[string]values.Value
}

// Container is the mapping from namespace name to Namespace for one
// product. The zero value reads as empty, but Set and RemoveNamespace
// need a container built by New.
type Container struct {
	namespaces map[string]Namespace
}

// New returns an empty container.
func New() *Container {
	return &Container{namespaces: make(map[string]Namespace)}
}

// Namespaces returns the set of namespace names present (not removed) in
// this container, sorted for deterministic iteration.
func (c *Container) Namespaces() []string {
	names := make([]string, 0, len(c.namespaces))
	for name, ns := range c.namespaces {
		if !ns.Removed {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// RawNamespaceNames returns every namespace name the container has an
// entry for, removed or not, sorted for deterministic iteration. Used by
// callers (e.g. update_properties) that need to act on Removed markers
// Namespaces alone would hide.
func (c *Container) RawNamespaceNames() []string {
	names := make([]string, 0, len(c.namespaces))
	for name := range c.namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsDefined reports whether namespace is present (has at least one field
// set, and is not marked Removed) in this container.
func (c *Container) IsDefined(namespace string) bool {
	ns, ok := c.namespaces[namespace]
	return ok && !ns.Removed && len(ns.Fields) > 0
}

// Get returns the value of namespace.field, and ok=false if the namespace or
// field is absent.
func (c *Container) Get(namespace, field string) (values.Value, bool) {
	ns, ok := c.namespaces[namespace]
	if !ok || ns.Removed {
		return values.Value{}, false
	}
	v, ok := ns.Fields[field]
	return v, ok
}

// Set stores a field value, creating the namespace entry if needed and
// clearing any prior Removed marker on it.
func (c *Container) Set(namespace, field string, v values.Value) {
	ns, ok := c.namespaces[namespace]
	if !ok || ns.Removed {
		ns = Namespace{Fields: make(map[string]values.Value)}
	}
	if ns.Fields == nil {
		ns.Fields = make(map[string]values.Value)
	}
	ns.Fields[field] = v
	c.namespaces[namespace] = ns
}

// RemoveNamespace marks namespace as removed: the null sentinel from spec
// §4.3 that, when merged into a stored container, deletes that namespace's
// row entirely.
func (c *Container) RemoveNamespace(namespace string) {
	c.namespaces[namespace] = Namespace{Removed: true}
}

// Fields returns a copy of namespace's field map, or nil if undefined.
func (c *Container) Fields(namespace string) map[string]values.Value {
	ns, ok := c.namespaces[namespace]
	if !ok || ns.Removed {
		return nil
	}
	out := make(map[string]values.Value, len(ns.Fields))
	for k, v := range ns.Fields {
		out[k] = v
	}
	return out
}

// RawNamespace exposes the internal Namespace entry, used by the db backend
// layer to tell "removed" from "absent" when materializing a diff as SQL.
func (c *Container) RawNamespace(namespace string) (Namespace, bool) {
	ns, ok := c.namespaces[namespace]
	return ns, ok
}

// Clone returns a deep copy.
func (c *Container) Clone() *Container {
	out := New()
	for name, ns := range c.namespaces {
		cp := Namespace{Removed: ns.Removed}
		if ns.Fields != nil {
			cp.Fields = make(map[string]values.Value, len(ns.Fields))
			for k, v := range ns.Fields {
				cp.Fields[k] = v
			}
		}
		out.namespaces[name] = cp
	}
	return out
}
