package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestParseValueType(t *testing.T) {
	testCases := []struct {
		in      string
		want    ValueType
		wantErr bool
	}{
		{in: "text", want: TypeText},
		{in: "String", want: TypeText},
		{in: "number", want: TypeNumber},
		{in: "bool", want: TypeBoolean},
		{in: "object", want: TypeStructured},
		{in: "", want: TypeDynamic},
		{in: "any", want: TypeDynamic},
		{in: "bytes", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseValueType(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestValueType_AcceptsFrom(t *testing.T) {
	testCases := []struct {
		name string
		dst  ValueType
		src  ValueType
		want bool
	}{
		{"same primitive", TypeNumber, TypeNumber, true},
		{"number widens to text", TypeText, TypeNumber, true},
		{"bool widens to text", TypeText, TypeBoolean, true},
		{"text does not narrow to number", TypeNumber, TypeText, false},
		{"number is not boolean", TypeBoolean, TypeNumber, false},
		{"dynamic destination", TypeDynamic, TypeStructured, true},
		{"dynamic source", TypeNumber, TypeDynamic, true},
		{"structured to structured", TypeStructured, TypeStructured, true},
		{"structured to text", TypeText, TypeStructured, false},
		{"text to structured", TypeStructured, TypeText, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.dst.AcceptsFrom(tc.src))
		})
	}
}

func TestValueType_Conform(t *testing.T) {
	t.Run("converts number to text", func(t *testing.T) {
		v, err := TypeText.Conform(cty.NumberIntVal(42))
		require.NoError(t, err)
		assert.Equal(t, cty.StringVal("42"), v)
	})

	t.Run("converts numeric text to number", func(t *testing.T) {
		v, err := TypeNumber.Conform(cty.StringVal("1.5"))
		require.NoError(t, err)
		require.Equal(t, cty.Number, v.Type())
		f, _ := v.AsBigFloat().Float64()
		assert.Equal(t, 1.5, f)
	})

	t.Run("rejects non numeric text", func(t *testing.T) {
		_, err := TypeNumber.Conform(cty.StringVal("abc"))
		assert.Error(t, err)
	})

	t.Run("structured accepts objects", func(t *testing.T) {
		obj := cty.ObjectVal(map[string]cty.Value{"a": cty.True})
		v, err := TypeStructured.Conform(obj)
		require.NoError(t, err)
		assert.True(t, v.RawEquals(obj))
	})

	t.Run("structured rejects primitives", func(t *testing.T) {
		_, err := TypeStructured.Conform(cty.StringVal("x"))
		assert.Error(t, err)
	})

	t.Run("dynamic accepts anything", func(t *testing.T) {
		v, err := TypeDynamic.Conform(cty.True)
		require.NoError(t, err)
		assert.Equal(t, cty.True, v)
	})
}

func TestGraph_Clone(t *testing.T) {
	g := &Graph{
		Nodes: []*Node{{
			ID:     "1",
			Kind:   KindProcess,
			Config: map[string]any{"env": map[string]any{"A": "1"}, "args": []any{"x"}},
		}},
		Edges: []*Edge{{ID: "e1", SourceNode: "1", SourcePort: "out", DestNode: "2", DestPort: "in"}},
	}

	c := g.Clone()
	c.Nodes[0].Config["env"].(map[string]any)["A"] = "changed"
	c.Edges[0].DestNode = "3"

	assert.Equal(t, "1", g.Nodes[0].Config["env"].(map[string]any)["A"])
	assert.Equal(t, "2", g.Edges[0].DestNode)
	assert.Same(t, c.Nodes[0], c.Node("1"))
	assert.Nil(t, c.Node("missing"))
}
