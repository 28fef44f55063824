package schema

import (
	"sort"
	"sync"

	"github.com/stcorp/muninn/internal/apperrors"
)

// Registry holds the live set of namespaces known to an archive: the fixed
// core namespace plus whatever extension namespaces were registered at
// archive-open time (spec §4.7, "namespace -> schema"). A Registry is safe
// for concurrent reads and is typically built once per archive handle and
// never mutated again after open(), but Register is safe to call
// concurrently should a caller need to register namespaces lazily.
type Registry struct {
	mu         sync.RWMutex
	namespaces map[string]Namespace
}

// NewRegistry returns a Registry pre-populated with the core namespace.
func NewRegistry() *Registry {
	r := &Registry{namespaces: make(map[string]Namespace)}
	r.namespaces[CoreNamespaceName] = Core
	return r
}

// Register adds an extension namespace. It rejects invalid namespaces,
// redefinition of "core", and name collisions with an already-registered
// namespace.
func (r *Registry) Register(ns Namespace) apperrors.Error {
	if err := ns.Validate(); err != nil {
		return err
	}
	if ns.Name == CoreNamespaceName {
		return ErrNamespace.Msg("namespace \"core\" is built in and cannot be redefined")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.namespaces[ns.Name]; exists {
		return ErrNamespace.Msg("namespace " + inQuotes(ns.Name) + " is already registered")
	}
	r.namespaces[ns.Name] = ns
	return nil
}

// Lookup returns the namespace registered under name.
func (r *Registry) Lookup(name string) (Namespace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ns, ok := r.namespaces[name]
	return ns, ok
}

// Names returns every registered namespace name, "core" first, the rest
// sorted alphabetically so DDL emission and listings are deterministic.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.namespaces))
	for name := range r.namespaces {
		if name != CoreNamespaceName {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return append([]string{CoreNamespaceName}, names...)
}

// ResolveField resolves a possibly-qualified "ns.field" or bare "field"
// (implicit core) reference, returning the owning namespace and field.
func (r *Registry) ResolveField(namespace, field string) (Namespace, Field, apperrors.Error) {
	if namespace == "" {
		namespace = CoreNamespaceName
	}
	ns, ok := r.Lookup(namespace)
	if !ok {
		return Namespace{}, Field{}, ErrNamespace.Msg("unknown namespace " + inQuotes(namespace))
	}
	f, ok := ns.Field(field)
	if !ok {
		return Namespace{}, Field{}, ErrNamespace.Msg("unknown field " + inQuotes(field) + " in namespace " + inQuotes(namespace))
	}
	return ns, f, nil
}
