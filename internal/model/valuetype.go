// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines port value types and maps them onto the cty type system,
// which is what the engine uses to check edge compatibility and to verify the
// values that scripts produce.
package model

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// ValueType is the declared type of a port.
type ValueType string

const (
	TypeText       ValueType = "text"
	TypeNumber     ValueType = "number"
	TypeBoolean    ValueType = "boolean"
	TypeStructured ValueType = "structured"
	// TypeDynamic accepts and produces any value.
	TypeDynamic ValueType = "dynamic"
)

// ParseValueType converts a user-supplied type keyword into a ValueType. An
// empty keyword means dynamic.
func ParseValueType(s string) (ValueType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "string":
		return TypeText, nil
	case "number":
		return TypeNumber, nil
	case "boolean", "bool":
		return TypeBoolean, nil
	case "structured", "object", "map", "list", "json":
		return TypeStructured, nil
	case "", "dynamic", "any":
		return TypeDynamic, nil
	default:
		return "", fmt.Errorf("unsupported value type %q: expected one of text, number, boolean, structured, dynamic", s)
	}
}

// CtyType returns the cty type a value of this port type is converted to.
// Structured and dynamic ports have no single cty type.
func (t ValueType) CtyType() cty.Type {
	switch t {
	case TypeText:
		return cty.String
	case TypeNumber:
		return cty.Number
	case TypeBoolean:
		return cty.Bool
	default:
		return cty.DynamicPseudoType
	}
}

func (t ValueType) primitive() bool {
	return t == TypeText || t == TypeNumber || t == TypeBoolean
}

// AcceptsFrom reports whether an input port of type t may be connected to an
// output port of type src.
func (t ValueType) AcceptsFrom(src ValueType) bool {
	if t == TypeDynamic || src == TypeDynamic || t == "" || src == "" {
		return true
	}
	if t == TypeStructured || src == TypeStructured {
		return t == src
	}
	return convert.GetConversion(src.CtyType(), t.CtyType()) != nil
}

// Conform converts v to this port type, or returns an error describing why
// the value does not fit.
func (t ValueType) Conform(v cty.Value) (cty.Value, error) {
	if v.IsNull() || t == TypeDynamic || t == "" {
		return v, nil
	}
	if !v.IsKnown() {
		return cty.NilVal, fmt.Errorf("value is unknown")
	}
	if t.primitive() {
		out, err := convert.Convert(v, t.CtyType())
		if err != nil {
			return cty.NilVal, fmt.Errorf("cannot use %s value as %s: %w", v.Type().FriendlyName(), t, err)
		}
		return out, nil
	}
	ty := v.Type()
	if ty.IsObjectType() || ty.IsMapType() || ty.IsListType() || ty.IsTupleType() || ty.IsSetType() {
		return v, nil
	}
	return cty.NilVal, fmt.Errorf("cannot use %s value as structured", ty.FriendlyName())
}
