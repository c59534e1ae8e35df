// Package input implements the "input" kind. Input nodes do not execute;
// their output ports are seeded from the run's initial inputs, falling back
// to a configured default or environment variable.
package input

import (
	"errors"
	"fmt"
	"os"

	"github.com/specialistvlad/gridflow/internal/ctyval"
	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/specialistvlad/gridflow/internal/script"
	"github.com/zclconf/go-cty/cty"
)

// ErrMissing is returned when no initial input, default or environment
// variable provides a value.
var ErrMissing = errors.New("missing initial input")

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&Kind{})
}

// Config is the decoded node config.
type Config struct {
	Default any    `mapstructure:"default"`
	Env     string `mapstructure:"env"`
}

// Kind is the "input" node kind.
type Kind struct{}

func (k *Kind) Name() string { return model.KindInput }

func (k *Kind) Ports(n *model.Node) ([]model.Port, []model.Port) {
	return nil, []model.Port{{ID: "value", Type: model.TypeDynamic}}
}

func (k *Kind) Check(n *model.Node) error {
	if len(n.Inputs) > 0 {
		return errors.New("input nodes cannot declare input ports")
	}
	if len(n.Outputs) == 0 {
		return errors.New("input nodes need at least one output port")
	}
	var cfg Config
	return registry.DecodeConfig(n.Config, &cfg)
}

func (k *Kind) Unit(n *model.Node, inputs map[string]cty.Value) (script.Unit, error) {
	return nil, errors.New("input nodes are seeded, not executed")
}

// Seed resolves a value for every output port of n. supplied holds the
// initial inputs addressed to this node keyed by port id.
func (k *Kind) Seed(n *model.Node, supplied map[string]cty.Value) (map[string]cty.Value, error) {
	var cfg Config
	if err := registry.DecodeConfig(n.Config, &cfg); err != nil {
		return nil, err
	}

	out := make(map[string]cty.Value, len(n.Outputs))
	for _, p := range n.Outputs {
		v, ok := supplied[p.ID]
		if !ok {
			var err error
			v, ok, err = fallback(cfg)
			if err != nil {
				return nil, fmt.Errorf("port %q: %w", p.ID, err)
			}
		}
		if !ok {
			return nil, fmt.Errorf("port %q: %w", p.ID, ErrMissing)
		}
		conformed, err := p.Type.Conform(v)
		if err != nil {
			return nil, fmt.Errorf("port %q: %w", p.ID, err)
		}
		out[p.ID] = conformed
	}
	return out, nil
}

func fallback(cfg Config) (cty.Value, bool, error) {
	if cfg.Env != "" {
		if s, ok := os.LookupEnv(cfg.Env); ok {
			return cty.StringVal(s), true, nil
		}
	}
	if cfg.Default != nil {
		v, err := ctyval.FromGo(cfg.Default)
		if err != nil {
			return cty.NilVal, false, err
		}
		return v, true, nil
	}
	return cty.NilVal, false, nil
}
