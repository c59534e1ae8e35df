// Package ctyval converts port values between cty and the plain Go/JSON forms
// used at the edges of the engine: request documents, script channels and
// archived results.
package ctyval

import (
	"fmt"
	"math/big"

	"github.com/bytedance/sonic"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// FromGo converts a decoded JSON-like Go value (maps, slices, strings,
// numbers, bools, nil) into a cty value.
func FromGo(v any) (cty.Value, error) {
	if v == nil {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	if cv, ok := v.(cty.Value); ok {
		return cv, nil
	}
	raw, err := sonic.Marshal(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("encoding value: %w", err)
	}
	return FromJSON(raw)
}

// FromJSON decodes a single JSON document into a cty value, inferring its type.
func FromJSON(raw []byte) (cty.Value, error) {
	ty, err := ctyjson.ImpliedType(raw)
	if err != nil {
		return cty.NilVal, fmt.Errorf("inferring type: %w", err)
	}
	v, err := ctyjson.Unmarshal(raw, ty)
	if err != nil {
		return cty.NilVal, fmt.Errorf("decoding value: %w", err)
	}
	return v, nil
}

// ToJSON encodes v as plain JSON, without cty type information.
func ToJSON(v cty.Value) ([]byte, error) {
	if v == cty.NilVal || v.IsNull() {
		return []byte("null"), nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("cannot encode unknown value")
	}
	return ctyjson.Marshal(v, v.Type())
}

// ToGo converts v into plain Go values suitable for any JSON or YAML encoder.
func ToGo(v cty.Value) (any, error) {
	raw, err := ToJSON(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding value: %w", err)
	}
	return out, nil
}

// MarshalObject encodes a port-keyed value map as one JSON object.
func MarshalObject(values map[string]cty.Value) ([]byte, error) {
	if len(values) == 0 {
		return []byte("{}"), nil
	}
	attrs := make(map[string]cty.Value, len(values))
	for k, v := range values {
		if v == cty.NilVal {
			v = cty.NullVal(cty.DynamicPseudoType)
		}
		attrs[k] = v
	}
	obj := cty.ObjectVal(attrs)
	if !obj.IsWhollyKnown() {
		return nil, fmt.Errorf("cannot encode unknown value")
	}
	return ctyjson.Marshal(obj, obj.Type())
}

// UnmarshalObject decodes a JSON object into a port-keyed value map.
func UnmarshalObject(raw []byte) (map[string]cty.Value, error) {
	v, err := FromJSON(raw)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return map[string]cty.Value{}, nil
	}
	if !v.Type().IsObjectType() {
		return nil, fmt.Errorf("expected a JSON object, got %s", v.Type().FriendlyName())
	}
	out := v.AsValueMap()
	if out == nil {
		out = map[string]cty.Value{}
	}
	return out, nil
}

// String renders v as plain text: strings verbatim, numbers in their shortest
// decimal form, booleans as true/false and everything else as JSON.
func String(v cty.Value) string {
	if v == cty.NilVal || v.IsNull() || !v.IsKnown() {
		return ""
	}
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Number:
		return FormatNumber(v.AsBigFloat())
	case cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	}
	raw, err := ToJSON(v)
	if err != nil {
		return ""
	}
	return string(raw)
}

// FormatNumber prints integers without a fractional part.
func FormatNumber(f *big.Float) string {
	if f.IsInt() {
		i, _ := f.Int(nil)
		return i.String()
	}
	return f.Text('g', -1)
}
