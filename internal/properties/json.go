package properties

import (
	"encoding/json"
	"fmt"

	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/schema"
	"github.com/stcorp/muninn/internal/values"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrPayload is the root of property-payload (de)serialization failures.
var ErrPayload apperrors.Error = apperrors.ErrSchema.Msg("invalid property payload")

// MarshalNamespace renders one namespace's fields as a JSON object whose
// keys are field names and whose values are the field's canonical literal
// form (numbers/booleans as JSON scalars, JSON values embedded as-is,
// text, timestamp, uuid and geometry as JSON strings).
func MarshalNamespace(fields map[string]values.Value) ([]byte, apperrors.Error) {
	obj := make(map[string]any, len(fields))
	for name, v := range fields {
		obj[name] = jsonScalar(v)
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, ErrPayload.Err(err)
	}
	return raw, nil
}

func jsonScalar(v values.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case values.KindBoolean:
		return v.Boolean()
	case values.KindInteger32:
		return v.Integer32()
	case values.KindLong64:
		return v.Long64()
	case values.KindReal:
		return v.Real()
	case values.KindText:
		return v.Text()
	case values.KindTimestamp:
		return values.FormatTimestamp(v.Timestamp())
	case values.KindUUID:
		return v.UUID().String()
	case values.KindGeometry:
		return values.FormatWKT(v.Geometry())
	case values.KindJSON:
		return json.RawMessage(v.JSONText())
	default:
		return nil
	}
}

// UnmarshalNamespace parses a namespace's raw JSON payload into a typed
// field map. It rejects a missing non-optional field and a timestamp, uuid
// or geometry value that does not parse; boolean, numeric and text fields
// take gjson's coercion of whatever JSON value is present, without a type
// check.
func UnmarshalNamespace(ns schema.Namespace, raw []byte) (map[string]values.Value, apperrors.Error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrPayload.Msg("payload is not valid JSON")
	}
	result := gjson.ParseBytes(raw)
	out := make(map[string]values.Value, len(ns.Fields))
	for _, f := range ns.Fields {
		if f.Name == "uuid" {
			continue
		}
		r := result.Get(f.Name)
		if !r.Exists() || r.Type == gjson.Null {
			if !f.Optional {
				return nil, ErrPayload.Msg(fmt.Sprintf("missing required field %q", f.Name))
			}
			continue
		}
		v, perr := parseFieldValue(f, r)
		if perr != nil {
			return nil, ErrPayload.Err(perr)
		}
		out[f.Name] = v
	}
	return out, nil
}

func parseFieldValue(f schema.Field, r gjson.Result) (values.Value, apperrors.Error) {
	switch f.Type {
	case values.KindBoolean:
		return values.NewBoolean(r.Bool()), nil
	case values.KindInteger32:
		return values.NewInteger32(int32(r.Int())), nil
	case values.KindLong64:
		return values.NewLong64(r.Int()), nil
	case values.KindReal:
		return values.NewReal(r.Float()), nil
	case values.KindText:
		return values.NewText(r.String()), nil
	case values.KindTimestamp:
		return values.ParseTimestamp(r.String())
	case values.KindUUID:
		return values.ParseUUID(r.String())
	case values.KindGeometry:
		return values.ParseWKT(r.String())
	case values.KindJSON:
		return values.NewJSON(r.Raw), nil
	default:
		return values.Value{}, ErrPayload.Msg(fmt.Sprintf("unsupported field kind for %q", f.Name))
	}
}

// PatchPath applies a single dotted-path update to a raw JSON document
// without round-tripping the whole document through Go structs.
func PatchPath(raw []byte, path string, value any) ([]byte, apperrors.Error) {
	out, err := sjson.SetBytes(raw, path, value)
	if err != nil {
		return nil, ErrPayload.Err(err)
	}
	return out, nil
}

// DeletePath removes a dotted path from a raw JSON document.
func DeletePath(raw []byte, path string) ([]byte, apperrors.Error) {
	out, err := sjson.DeleteBytes(raw, path)
	if err != nil {
		return nil, ErrPayload.Err(err)
	}
	return out, nil
}
