package output

import (
	"testing"

	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/script"
	"github.com/specialistvlad/gridflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestPorts_MirrorInputs(t *testing.T) {
	k := &Kind{}

	in, out := k.Ports(&model.Node{})
	assert.Equal(t, "value", in[0].ID)
	assert.Equal(t, "value", out[0].ID)

	n := &model.Node{Inputs: []model.Port{{ID: "a", Type: model.TypeText}, {ID: "b", Type: model.TypeNumber}}}
	in, out = k.Ports(n)
	assert.Nil(t, in)
	assert.Equal(t, []model.Port{{ID: "a", Type: model.TypeText}, {ID: "b", Type: model.TypeNumber}}, out)
}

func TestCheck(t *testing.T) {
	k := &Kind{}
	n := &model.Node{ID: "o", Inputs: []model.Port{{ID: "a", Type: model.TypeText}}}
	_, n.Outputs = k.Ports(n)
	assert.NoError(t, k.Check(n))

	n.Outputs = []model.Port{{ID: "other"}}
	assert.ErrorContains(t, k.Check(n), `"a" has no matching output port`)

	assert.ErrorContains(t, k.Check(&model.Node{ID: "o"}), "at least one input")
}

func TestUnit_RepublishesInputs(t *testing.T) {
	ctx, logs := testutil.Context(t)
	k := &Kind{}
	n := &model.Node{ID: "result", Inputs: []model.Port{{ID: "a"}, {ID: "b"}}}
	_, n.Outputs = k.Ports(n)

	u, err := k.Unit(n, nil)
	require.NoError(t, err)
	out, err := u.(script.Func)(ctx, map[string]cty.Value{"a": cty.StringVal("x"), "b": cty.NumberIntVal(2), "stray": cty.True})
	require.NoError(t, err)

	assert.Equal(t, map[string]cty.Value{"a": cty.StringVal("x"), "b": cty.NumberIntVal(2)}, out)
	assert.Contains(t, logs.String(), "Output collected.")
	assert.Contains(t, logs.String(), "output=result")
}
