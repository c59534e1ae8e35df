// Package delay implements the "delay" kind: it waits for a fixed time and
// then passes its input through unchanged.
package delay

import (
	"context"
	"errors"
	"time"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/specialistvlad/gridflow/internal/script"
	"github.com/zclconf/go-cty/cty"
)

const Name = "delay"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&Kind{})
}

// Config is the decoded node config.
type Config struct {
	Seconds float64 `mapstructure:"seconds"`
}

func (c Config) duration() time.Duration {
	return time.Duration(c.Seconds * float64(time.Second))
}

// Kind is the "delay" node kind.
type Kind struct{}

func (k *Kind) Name() string { return Name }

func (k *Kind) Ports(*model.Node) ([]model.Port, []model.Port) {
	return []model.Port{{ID: "value", Type: model.TypeDynamic}},
		[]model.Port{{ID: "value", Type: model.TypeDynamic}}
}

func (k *Kind) Check(n *model.Node) error {
	var cfg Config
	if err := registry.DecodeConfig(n.Config, &cfg); err != nil {
		return err
	}
	if cfg.Seconds < 0 {
		return errors.New("seconds must not be negative")
	}
	return nil
}

func (k *Kind) Unit(n *model.Node, _ map[string]cty.Value) (script.Unit, error) {
	var cfg Config
	if err := registry.DecodeConfig(n.Config, &cfg); err != nil {
		return nil, err
	}
	wait := cfg.duration()

	return script.Func(func(ctx context.Context, inputs map[string]cty.Value) (map[string]cty.Value, error) {
		ctxlog.FromContext(ctx).Debug("Delaying.", "duration", wait)
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		out := make(map[string]cty.Value, len(inputs))
		for port, v := range inputs {
			if _, ok := n.Output(port); ok {
				out[port] = v
			}
		}
		return out, nil
	}), nil
}
