package properties

import (
	"testing"

	"github.com/stcorp/muninn/internal/schema"
	"github.com/stcorp/muninn/internal/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetIsDefined(t *testing.T) {
	c := New()
	assert.False(t, c.IsDefined("geo"))
	c.Set("geo", "country", values.NewText("NL"))
	assert.True(t, c.IsDefined("geo"))
	v, ok := c.Get("geo", "country")
	require.True(t, ok)
	assert.Equal(t, "NL", v.Text())
}

func TestRemoveNamespace(t *testing.T) {
	c := New()
	c.Set("geo", "country", values.NewText("NL"))
	c.RemoveNamespace("geo")
	assert.False(t, c.IsDefined("geo"))
	ns, ok := c.RawNamespace("geo")
	require.True(t, ok)
	assert.True(t, ns.Removed)
}

func TestMergeOverwritesFieldsKeepsOthers(t *testing.T) {
	base := New()
	base.Set("geo", "country", values.NewText("NL"))
	base.Set("geo", "population", values.NewLong64(100))

	patch := New()
	patch.Set("geo", "population", values.NewLong64(200))

	merged := Merge(base, patch)
	v, _ := merged.Get("geo", "country")
	assert.Equal(t, "NL", v.Text())
	v, _ = merged.Get("geo", "population")
	assert.EqualValues(t, 200, v.Long64())
}

func TestMergeRemovesNamespace(t *testing.T) {
	base := New()
	base.Set("geo", "country", values.NewText("NL"))

	patch := New()
	patch.RemoveNamespace("geo")

	merged := Merge(base, patch)
	assert.False(t, merged.IsDefined("geo"))
}

func TestDiffOnlyReportsChanges(t *testing.T) {
	before := New()
	before.Set("geo", "country", values.NewText("NL"))
	before.Set("geo", "population", values.NewLong64(100))

	after := before.Clone()
	after.Set("geo", "population", values.NewLong64(150))

	d := Diff(before, after)
	_, hasCountry := d.Get("geo", "country")
	assert.False(t, hasCountry, "unchanged field should not appear in diff")
	v, hasPop := d.Get("geo", "population")
	require.True(t, hasPop)
	assert.EqualValues(t, 150, v.Long64())
}

func TestDiffDetectsNamespaceRemoval(t *testing.T) {
	before := New()
	before.Set("geo", "country", values.NewText("NL"))
	after := New()

	d := Diff(before, after)
	ns, ok := d.RawNamespace("geo")
	require.True(t, ok)
	assert.True(t, ns.Removed)
}

func TestViewNamespacesAndFields(t *testing.T) {
	c := New()
	c.Set("geo", "country", values.NewText("NL"))
	c.Set("admin", "owner", values.NewText("alice"))

	v := c.ViewNamespaces([]string{"geo"})
	assert.True(t, v.IsDefined("geo"))
	assert.False(t, v.IsDefined("admin"))

	v2 := c.ViewFields([]string{"geo.country"})
	_, ok := v2.Get("geo", "country")
	assert.True(t, ok)
	_, ok = v2.Get("admin", "owner")
	assert.False(t, ok)
}

func TestMarshalUnmarshalNamespaceRoundTrip(t *testing.T) {
	ns := schema.Namespace{
		Name: "geo",
		Fields: []schema.Field{
			{Name: "country", Type: values.KindText, Optional: false},
			{Name: "population", Type: values.KindLong64, Optional: true},
		},
	}
	fields := map[string]values.Value{
		"country":    values.NewText("NL"),
		"population": values.NewLong64(17400000),
	}
	raw, err := MarshalNamespace(fields)
	require.Nil(t, err)

	parsed, perr := UnmarshalNamespace(ns, raw)
	require.Nil(t, perr)
	assert.Equal(t, "NL", parsed["country"].Text())
	assert.EqualValues(t, 17400000, parsed["population"].Long64())
}

func TestUnmarshalNamespaceRejectsMissingRequired(t *testing.T) {
	ns := schema.Namespace{
		Name:   "geo",
		Fields: []schema.Field{{Name: "country", Type: values.KindText, Optional: false}},
	}
	_, err := UnmarshalNamespace(ns, []byte(`{}`))
	assert.NotNil(t, err)
}

func TestPatchPath(t *testing.T) {
	raw := []byte(`{"country":"NL"}`)
	out, err := PatchPath(raw, "population", 100)
	require.Nil(t, err)
	assert.JSONEq(t, `{"country":"NL","population":100}`, string(out))

	out, err = DeletePath(out, "population")
	require.Nil(t, err)
	assert.JSONEq(t, `{"country":"NL"}`, string(out))
}
