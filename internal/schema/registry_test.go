package schema

import (
	"testing"

	"github.com/stcorp/muninn/internal/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryHasCoreByDefault(t *testing.T) {
	r := NewRegistry()
	ns, ok := r.Lookup(CoreNamespaceName)
	require.True(t, ok)
	assert.Equal(t, Core, ns)
}

func TestRegisterRejectsCoreRedefinition(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Namespace{Name: "core"})
	assert.NotNil(t, err)
}

func TestRegisterRejectsUUIDRedeclaration(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Namespace{
		Name:   "geo",
		Fields: []Field{{Name: "uuid", Type: values.KindUUID}},
	})
	assert.NotNil(t, err)
}

func TestRegisterRejectsDuplicateNamespace(t *testing.T) {
	r := NewRegistry()
	ns := Namespace{Name: "geo", Fields: []Field{{Name: "country", Type: values.KindText}}}
	require.Nil(t, r.Register(ns))
	assert.NotNil(t, r.Register(ns))
}

func TestResolveFieldDefaultsToCore(t *testing.T) {
	r := NewRegistry()
	ns, f, err := r.ResolveField("", "product_name")
	require.Nil(t, err)
	assert.Equal(t, CoreNamespaceName, ns.Name)
	assert.Equal(t, "product_name", f.Name)
}

func TestJSONSchemaValidatesPayload(t *testing.T) {
	ns := Namespace{
		Name: "geo",
		Fields: []Field{
			{Name: "country", Type: values.KindText, Optional: false},
			{Name: "population", Type: values.KindLong64, Optional: true},
		},
	}
	errs := ns.ValidatePayload([]byte(`{"country": "NL", "population": 17}`))
	assert.Empty(t, errs)

	errs = ns.ValidatePayload([]byte(`{"population": 17}`))
	assert.NotEmpty(t, errs)

	errs = ns.ValidatePayload([]byte(`{"country": "NL", "extra": true}`))
	assert.NotEmpty(t, errs)
}
