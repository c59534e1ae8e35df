package graph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopologicalLayers(t *testing.T) {
	proc := func(b *testutil.GraphBuilder, id string) *testutil.GraphBuilder {
		return b.Process(id, nil,
			[]model.Port{testutil.OptIn("a", model.TypeDynamic), testutil.OptIn("b", model.TypeDynamic)},
			[]model.Port{testutil.Out("out", model.TypeDynamic)})
	}

	t.Run("empty graph", func(t *testing.T) {
		layers, err := TopologicalLayers(&model.Graph{})
		require.NoError(t, err)
		assert.Empty(t, layers)
	})

	t.Run("diamond", func(t *testing.T) {
		b := testutil.NewGraph()
		for _, id := range []string{"d", "c", "b", "a"} {
			proc(b, id)
		}
		g := b.Edge("a.out", "b.a").
			Edge("a.out", "c.a").
			Edge("b.out", "d.a").
			Edge("c.out", "d.b").
			Build()

		layers, err := TopologicalLayers(g)
		require.NoError(t, err)
		if diff := cmp.Diff([][]string{{"a"}, {"b", "c"}, {"d"}}, layers); diff != "" {
			t.Errorf("layers mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("independent nodes share a sorted layer", func(t *testing.T) {
		b := testutil.NewGraph()
		for _, id := range []string{"z", "m", "10", "2"} {
			proc(b, id)
		}
		layers, err := TopologicalLayers(b.Build())
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"10", "2", "m", "z"}}, layers)
	})

	t.Run("transitive edge pushes node down", func(t *testing.T) {
		b := testutil.NewGraph()
		for _, id := range []string{"a", "b", "c"} {
			proc(b, id)
		}
		g := b.Edge("a.out", "b.a").
			Edge("b.out", "c.a").
			Edge("a.out", "c.b").
			Build()

		layers, err := TopologicalLayers(g)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}}, layers)
	})

	t.Run("cycle", func(t *testing.T) {
		b := testutil.NewGraph()
		for _, id := range []string{"a", "b"} {
			proc(b, id)
		}
		g := b.Edge("a.out", "b.a").Edge("b.out", "a.a").Build()

		_, err := TopologicalLayers(g)
		var cycle *CycleError
		require.True(t, errors.As(err, &cycle))
		assert.Equal(t, []string{"a", "b", "a"}, cycle.Path)
	})
}
