package codec

import (
	"encoding/json"
	"fmt"

	"github.com/flagforge/core/pkg/ffcerr"
	"github.com/flagforge/core/pkg/flag"
)

func decodeTypedValue(kind flag.ValueKind, raw json.RawMessage, featureKey string, schema *Schema) (interface{}, error) {
	switch kind {
	case flag.KindBool:
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, ffcerr.Wrap(ffcerr.ErrInvalidSnapshot, fmt.Sprintf("feature %q expects a boolean value", featureKey), err)
		}
		return v, nil
	case flag.KindInt:
		var v int64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, ffcerr.Wrap(ffcerr.ErrInvalidSnapshot, fmt.Sprintf("feature %q expects an integer value", featureKey), err)
		}
		return v, nil
	case flag.KindDouble:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, ffcerr.Wrap(ffcerr.ErrInvalidSnapshot, fmt.Sprintf("feature %q expects a numeric value", featureKey), err)
		}
		return v, nil
	case flag.KindString:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, ffcerr.Wrap(ffcerr.ErrInvalidSnapshot, fmt.Sprintf("feature %q expects a string value", featureKey), err)
		}
		return v, nil
	case flag.KindEnum:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, ffcerr.Wrap(ffcerr.ErrInvalidSnapshot, fmt.Sprintf("feature %q expects an enum member name", featureKey), err)
		}
		if allowed, declared := schema.enumAllowed(featureKey, v); declared && !allowed {
			return nil, ffcerr.New(ffcerr.ErrInvalidSnapshot, fmt.Sprintf("feature %q: %q is not a declared enum member", featureKey, v))
		}
		return v, nil
	case flag.KindObject:
		var v map[string]interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, ffcerr.Wrap(ffcerr.ErrInvalidSnapshot, fmt.Sprintf("feature %q expects an object value", featureKey), err)
		}
		return decodeObject(v, featureKey, schema)
	default:
		return nil, ffcerr.New(ffcerr.ErrInvalidSnapshot, fmt.Sprintf("feature %q has an unrecognized value kind", featureKey))
	}
}

// decodeObject matches raw's keys against the object schema registered
// under name, filling declared defaults for absent optional fields and
// failing when a required field is missing — the stand-in for "locating a
// constructor whose parameter names match the JSON object's keys".
func decodeObject(raw map[string]interface{}, name string, schema *Schema) (map[string]interface{}, error) {
	objSchema, declared := schema.object(name)
	if !declared {
		return raw, nil
	}
	result := make(map[string]interface{}, len(objSchema.Fields))
	for _, field := range objSchema.Fields {
		value, present := raw[field.Name]
		if !present {
			if field.Required {
				return nil, ffcerr.New(ffcerr.ErrInvalidSnapshot, fmt.Sprintf("object %q missing required field %q", name, field.Name))
			}
			result[field.Name] = field.Default
			continue
		}
		result[field.Name] = value
	}
	return result, nil
}

func encodeTypedValue(kind flag.ValueKind, value interface{}) (json.RawMessage, error) {
	switch kind {
	case flag.KindBool, flag.KindInt, flag.KindDouble, flag.KindString, flag.KindEnum, flag.KindObject:
		out, err := json.Marshal(value)
		if err != nil {
			return nil, ffcerr.Wrap(ffcerr.ErrInvalidSnapshot, "failed to encode typed value", err)
		}
		return out, nil
	default:
		return nil, ffcerr.New(ffcerr.ErrInvalidSnapshot, "unrecognized value kind during encode")
	}
}
