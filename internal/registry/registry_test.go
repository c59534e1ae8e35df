package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type fakeKind struct {
	name     string
	checkErr error
}

func (k *fakeKind) Name() string { return k.name }

func (k *fakeKind) Ports(n *model.Node) ([]model.Port, []model.Port) {
	return []model.Port{{ID: "in", Type: model.TypeDynamic}}, []model.Port{{ID: "out", Type: model.TypeText}}
}

func (k *fakeKind) Check(n *model.Node) error { return k.checkErr }

func (k *fakeKind) Unit(n *model.Node, inputs map[string]cty.Value) (script.Unit, error) {
	return script.Shell("true", nil), nil
}

type fakeModule struct{ kinds []Kind }

func (m *fakeModule) Register(r *Registry) {
	for _, k := range m.kinds {
		r.Register(k)
	}
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := New(&fakeModule{kinds: []Kind{&fakeKind{name: "b"}, &fakeKind{name: "a"}}})

	k, ok := r.Kind("a")
	require.True(t, ok)
	assert.Equal(t, "a", k.Name())
	assert.Equal(t, []string{"a", "b"}, r.Names())

	assert.Panics(t, func() { r.Register(&fakeKind{name: "a"}) })
}

func TestRegistry_CheckNode(t *testing.T) {
	r := New(&fakeModule{kinds: []Kind{&fakeKind{name: "ok"}, &fakeKind{name: "bad", checkErr: errors.New("nope")}}})

	assert.NoError(t, r.CheckNode(&model.Node{ID: "1", Kind: "ok"}))
	assert.EqualError(t, r.CheckNode(&model.Node{ID: "2", Kind: "bad"}), "nope")
	assert.ErrorContains(t, r.CheckNode(&model.Node{ID: "3", Kind: "ghost"}), `unknown kind "ghost"`)
}

func TestRegistry_Prepare(t *testing.T) {
	r := New(&fakeModule{kinds: []Kind{&fakeKind{name: "k"}}})
	declared := []model.Port{{ID: "custom", Type: model.TypeNumber}}
	g := &model.Graph{Nodes: []*model.Node{
		{ID: "bare", Kind: "k"},
		{ID: "declared", Kind: "k", Inputs: declared},
		{ID: "unknown", Kind: "ghost"},
	}}

	r.Prepare(g)

	assert.Equal(t, "in", g.Nodes[0].Inputs[0].ID)
	assert.Equal(t, "out", g.Nodes[0].Outputs[0].ID)
	assert.Equal(t, declared, g.Nodes[1].Inputs)
	assert.Equal(t, "out", g.Nodes[1].Outputs[0].ID)
	assert.Empty(t, g.Nodes[2].Inputs)
}

func TestDecodeConfig(t *testing.T) {
	type cfg struct {
		Command string            `mapstructure:"command"`
		Retries int               `mapstructure:"retries"`
		Timeout time.Duration     `mapstructure:"timeout"`
		Env     map[string]string `mapstructure:"env"`
	}

	var c cfg
	err := DecodeConfig(map[string]any{
		"command": "echo hi",
		"retries": "3",
		"timeout": "2s",
		"env":     map[string]any{"A": "1"},
	}, &c)
	require.NoError(t, err)
	assert.Equal(t, cfg{Command: "echo hi", Retries: 3, Timeout: 2 * time.Second, Env: map[string]string{"A": "1"}}, c)

	err = DecodeConfig(map[string]any{"comand": "typo"}, &c)
	assert.ErrorContains(t, err, "comand")
}

func TestSubstitute(t *testing.T) {
	inputs := map[string]cty.Value{
		"name":  cty.StringVal("world"),
		"count": cty.NumberIntVal(3),
	}

	assert.Equal(t, "hello world x3", Substitute("hello ${name} x${count}", inputs))
	assert.Equal(t, "keep ${missing}", Substitute("keep ${missing}", inputs))
	assert.Equal(t, "plain", Substitute("plain", inputs))
	assert.Equal(t, []string{"name", "count"}, References("${name}-${count}"))
}
