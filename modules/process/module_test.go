package process

import (
	"context"
	"testing"
	"time"

	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func node(cfg map[string]any) *model.Node {
	return &model.Node{
		ID:      "p",
		Kind:    model.KindProcess,
		Config:  cfg,
		Inputs:  []model.Port{{ID: "a", Type: model.TypeText}, {ID: "b", Type: model.TypeText, Optional: true}},
		Outputs: []model.Port{{ID: "a", Type: model.TypeText}},
	}
}

func TestCheck(t *testing.T) {
	k := &Kind{}

	testCases := []struct {
		name    string
		cfg     map[string]any
		wantErr string
	}{
		{name: "shell command", cfg: map[string]any{"command": "echo ${a}"}},
		{name: "argv command", cfg: map[string]any{"command": []any{"echo", "${b}"}}},
		{name: "script", cfg: map[string]any{"script": "print(1)", "interpreter": "python3"}},
		{name: "transform", cfg: map[string]any{"transform": "upper"}},
		{name: "nothing set", cfg: map[string]any{}, wantErr: "exactly one"},
		{name: "two set", cfg: map[string]any{"command": "x", "transform": "upper"}, wantErr: "exactly one"},
		{name: "unknown transform", cfg: map[string]any{"transform": "reverse"}, wantErr: `unknown transform "reverse"`},
		{name: "bad reference", cfg: map[string]any{"command": "echo ${c}"}, wantErr: "${c}"},
		{name: "non-string argv", cfg: map[string]any{"command": []any{"echo", 1}}, wantErr: "argument 1"},
		{name: "empty argv", cfg: map[string]any{"command": []any{}}, wantErr: "must not be empty"},
		{name: "unknown field", cfg: map[string]any{"comand": "x"}, wantErr: "comand"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := k.Check(node(tc.cfg))
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestUnit_Command(t *testing.T) {
	k := &Kind{}
	inputs := map[string]cty.Value{"a": cty.StringVal("hello")}

	u, err := k.Unit(node(map[string]any{"command": "echo ${a}", "env": map[string]any{"X": "1"}}), inputs)
	require.NoError(t, err)
	assert.Equal(t, &script.Command{Args: []string{"sh", "-c", "echo hello"}, Env: map[string]string{"X": "1"}}, u)

	u, err = k.Unit(node(map[string]any{"script": "print('${a}')", "interpreter": "python3"}), inputs)
	require.NoError(t, err)
	assert.Equal(t, []string{"python3", "-c", "print('hello')"}, u.(*script.Command).Args)
}

func TestUnit_Transform(t *testing.T) {
	k := &Kind{}
	ctx := context.Background()

	run := func(t *testing.T, n *model.Node, inputs map[string]cty.Value) map[string]cty.Value {
		t.Helper()
		u, err := k.Unit(n, inputs)
		require.NoError(t, err)
		fn, ok := u.(script.Func)
		require.True(t, ok)
		out, err := fn(ctx, inputs)
		require.NoError(t, err)
		return out
	}

	out := run(t, node(map[string]any{"transform": "upper"}), map[string]cty.Value{"a": cty.StringVal("abc")})
	assert.Equal(t, cty.StringVal("ABC"), out["a"])

	concat := node(map[string]any{"transform": "concat", "separator": "-"})
	concat.Outputs = []model.Port{{ID: "joined", Type: model.TypeText}}
	out = run(t, concat, map[string]cty.Value{"a": cty.StringVal("x"), "b": cty.StringVal("y")})
	assert.Equal(t, cty.StringVal("x-y"), out["joined"])

	out = run(t, concat, map[string]cty.Value{"a": cty.StringVal("x")})
	assert.Equal(t, cty.StringVal("x"), out["joined"])

	single := node(map[string]any{"transform": "identity"})
	single.Inputs = []model.Port{{ID: "in", Type: model.TypeNumber}}
	single.Outputs = []model.Port{{ID: "out", Type: model.TypeNumber}}
	out = run(t, single, map[string]cty.Value{"in": cty.NumberIntVal(4)})
	assert.Equal(t, cty.NumberIntVal(4), out["out"])
}

func TestTimeout(t *testing.T) {
	k := &Kind{}
	assert.Equal(t, 3*time.Second, k.Timeout(node(map[string]any{"command": "x", "timeout": "3s"})))
	assert.Zero(t, k.Timeout(node(map[string]any{"command": "x"})))
}
