package schema

import (
	"encoding/json"
	"fmt"

	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/values"
	"github.com/xeipuuv/gojsonschema"
)

// jsonSchemaType maps a Muninn Kind to the JSON-Schema primitive type used
// to pre-validate a namespace's wire payload before it reaches the typed
// property container. Geometry and Timestamp are validated as strings (WKT
// / ISO-ish literal text); the schema does not check their literal syntax.
func jsonSchemaType(k values.Kind) string {
	switch k {
	case values.KindBoolean:
		return "boolean"
	case values.KindInteger32, values.KindLong64:
		return "integer"
	case values.KindReal:
		return "number"
	case values.KindJSON:
		return "object"
	default:
		return "string"
	}
}

// JSONSchema builds a draft-07 JSON Schema document describing the wire
// shape of a namespace's property payload: an object whose properties are
// the namespace's fields, "required" listing the non-optional ones, and
// no extra fields allowed. ValidatePayload checks a payload against it;
// properties.UnmarshalNamespace does not call ValidatePayload.
func (n Namespace) JSONSchema() map[string]any {
	props := make(map[string]any, len(n.Fields))
	var required []string
	for _, f := range n.Fields {
		if f.Name == "uuid" {
			continue
		}
		props[f.Name] = map[string]any{"type": jsonSchemaType(f.Type)}
		if !f.Optional {
			required = append(required, f.Name)
		}
	}
	doc := map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return doc
}

// ErrJSONSchema is the root of JSON-Schema structural validation failures.
var ErrJSONSchema apperrors.Error = apperrors.ErrSchema.Msg("payload does not match namespace schema")

// ValidatePayload checks a raw JSON property payload against the
// namespace's generated JSON Schema using gojsonschema, returning one
// ErrJSONSchema-derived error per validation failure so callers can report
// every problem at once (rather than stopping at the first).
func (n Namespace) ValidatePayload(raw []byte) []apperrors.Error {
	schemaDoc, err := json.Marshal(n.JSONSchema())
	if err != nil {
		return []apperrors.Error{ErrJSONSchema.Err(err)}
	}
	schemaLoader := gojsonschema.NewBytesLoader(schemaDoc)
	docLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return []apperrors.Error{ErrJSONSchema.Err(err)}
	}
	if result.Valid() {
		return nil
	}
	errs := make([]apperrors.Error, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		errs = append(errs, ErrJSONSchema.Msg(fmt.Sprintf("%s: %s", re.Field(), re.Description())))
	}
	return errs
}
