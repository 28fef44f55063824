package schema

import "github.com/stcorp/muninn/internal/values"

// Core is the compile-time, fixed definition of the "core" namespace (spec
// §4.2). It is never mutated at run time and is always present in a
// Registry.
var Core = Namespace{
	Name: CoreNamespaceName,
	Fields: []Field{
		{Name: "uuid", Type: values.KindUUID, Optional: false, Indexed: false},
		{Name: "active", Type: values.KindBoolean, Optional: false, Indexed: true},
		{Name: "hash", Type: values.KindText, Optional: true, Indexed: true},
		{Name: "size", Type: values.KindLong64, Optional: true, Indexed: true},
		{Name: "metadata_date", Type: values.KindTimestamp, Optional: false, Indexed: true},
		{Name: "archive_date", Type: values.KindTimestamp, Optional: true, Indexed: true},
		{Name: "archive_path", Type: values.KindText, Optional: true, Indexed: false},
		{Name: "product_type", Type: values.KindText, Optional: false, Indexed: true},
		{Name: "product_name", Type: values.KindText, Optional: false, Indexed: true},
		{Name: "physical_name", Type: values.KindText, Optional: false, Indexed: true},
		{Name: "validity_start", Type: values.KindTimestamp, Optional: true, Indexed: true},
		{Name: "validity_stop", Type: values.KindTimestamp, Optional: true, Indexed: true},
		{Name: "creation_date", Type: values.KindTimestamp, Optional: true, Indexed: true},
		{Name: "footprint", Type: values.KindGeometry, Optional: true, Indexed: false},
		{Name: "remote_url", Type: values.KindText, Optional: true, Indexed: false},
	},
}

// CoreField looks up a field of the core namespace, panicking if name is
// not one of the fixed fields above — a programmer error, never a runtime
// condition since Core never changes.
func CoreField(name string) Field {
	f, ok := Core.Field(name)
	if !ok {
		panic("schema: unknown core field " + name)
	}
	return f
}
