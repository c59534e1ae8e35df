// Package output implements the "output" kind. Output nodes collect the
// values that reach them and republish each input on the output port of the
// same id, so the run result carries them.
package output

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/ctyval"
	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/specialistvlad/gridflow/internal/script"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&Kind{})
}

// Config is the decoded node config.
type Config struct {
	// Label is only used in log output.
	Label string `mapstructure:"label"`
}

// Kind is the "output" node kind.
type Kind struct{}

func (k *Kind) Name() string { return model.KindOutput }

func (k *Kind) Ports(n *model.Node) ([]model.Port, []model.Port) {
	if n == nil || len(n.Inputs) == 0 {
		return []model.Port{{ID: "value", Type: model.TypeDynamic}},
			[]model.Port{{ID: "value", Type: model.TypeDynamic}}
	}
	outputs := make([]model.Port, len(n.Inputs))
	for i, p := range n.Inputs {
		outputs[i] = model.Port{ID: p.ID, Type: p.Type}
	}
	return nil, outputs
}

func (k *Kind) Check(n *model.Node) error {
	var cfg Config
	if err := registry.DecodeConfig(n.Config, &cfg); err != nil {
		return err
	}
	if len(n.Inputs) == 0 {
		return errors.New("output nodes need at least one input port")
	}
	for _, in := range n.Inputs {
		out, ok := n.Output(in.ID)
		if !ok {
			return fmt.Errorf("input port %q has no matching output port", in.ID)
		}
		if !out.Type.AcceptsFrom(in.Type) {
			return fmt.Errorf("output port %q (%s) cannot carry input type %s", out.ID, out.Type, in.Type)
		}
	}
	return nil
}

func (k *Kind) Unit(n *model.Node, _ map[string]cty.Value) (script.Unit, error) {
	var cfg Config
	if err := registry.DecodeConfig(n.Config, &cfg); err != nil {
		return nil, err
	}
	label := cfg.Label
	if label == "" {
		label = n.ID
	}

	return script.Func(func(ctx context.Context, inputs map[string]cty.Value) (map[string]cty.Value, error) {
		logger := ctxlog.FromContext(ctx)

		// Sort keys for consistent output
		keys := make([]string, 0, len(inputs))
		for k := range inputs {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := make(map[string]cty.Value, len(inputs))
		for _, key := range keys {
			if _, ok := n.Output(key); !ok {
				continue
			}
			out[key] = inputs[key]
			logger.Info("Output collected.", "output", label, "port", key, "value", ctyval.String(inputs[key]))
		}
		return out, nil
	}), nil
}
