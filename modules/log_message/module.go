// Package log_message implements the "log" kind. It writes a message to the
// run's log, with ${port} references replaced by input values, and publishes
// the rendered message.
package log_message

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/specialistvlad/gridflow/internal/script"
	"github.com/zclconf/go-cty/cty"
)

const Name = "log"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&Kind{})
}

type Config struct {
	Message string `mapstructure:"message"`
	Level   string `mapstructure:"level"`
}

func (c Config) level() (slog.Level, error) {
	var lvl slog.Level
	if c.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("invalid level %q: %w", c.Level, err)
	}
	return lvl, nil
}

// Kind is the "log" node kind.
type Kind struct{}

func (k *Kind) Name() string { return Name }

func (k *Kind) Ports(*model.Node) ([]model.Port, []model.Port) {
	return []model.Port{{ID: "value", Type: model.TypeDynamic, Optional: true}},
		[]model.Port{{ID: "message", Type: model.TypeText}}
}

func (k *Kind) Check(n *model.Node) error {
	var cfg Config
	if err := registry.DecodeConfig(n.Config, &cfg); err != nil {
		return err
	}
	if cfg.Message == "" {
		return fmt.Errorf("message is required")
	}
	if _, err := cfg.level(); err != nil {
		return err
	}
	for _, ref := range registry.References(cfg.Message) {
		if _, ok := n.Input(ref); !ok {
			return fmt.Errorf("reference ${%s} does not name an input port", ref)
		}
	}
	return nil
}

func (k *Kind) Unit(n *model.Node, _ map[string]cty.Value) (script.Unit, error) {
	var cfg Config
	if err := registry.DecodeConfig(n.Config, &cfg); err != nil {
		return nil, err
	}
	lvl, err := cfg.level()
	if err != nil {
		return nil, err
	}

	return script.Func(func(ctx context.Context, inputs map[string]cty.Value) (map[string]cty.Value, error) {
		msg := registry.Substitute(cfg.Message, inputs)
		ctxlog.FromContext(ctx).Log(ctx, lvl, msg, "log_node", n.ID)
		return map[string]cty.Value{"message": cty.StringVal(msg)}, nil
	}), nil
}
