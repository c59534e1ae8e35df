// Package condition implements the "condition" kind. A condition node
// compares its input against a configured operand and forwards the input on
// exactly one of its "true" and "false" output ports.
package condition

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/gridflow/internal/ctyval"
	"github.com/specialistvlad/gridflow/internal/hclexpr"
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
	Op      string `mapstructure:"op"`
	Compare any    `mapstructure:"compare"`
	// Expr is an HCL expression over the variables input and compare, used
	// when Op is "expr".
	Expr string `mapstructure:"expr"`
	// Port selects the input port to test when more than one is declared.
	Port string `mapstructure:"port"`
}

// Kind is the "condition" node kind.
type Kind struct{}

func (k *Kind) Name() string { return model.KindCondition }

func (k *Kind) Ports(n *model.Node) ([]model.Port, []model.Port) {
	return []model.Port{{ID: "value", Type: model.TypeDynamic}},
		[]model.Port{{ID: model.PortTrue, Type: model.TypeDynamic}, {ID: model.PortFalse, Type: model.TypeDynamic}}
}

func (k *Kind) Check(n *model.Node) error {
	cfg, err := decode(n)
	if err != nil {
		return err
	}

	if _, ok := operators[cfg.Op]; !ok {
		return fmt.Errorf("unknown operator %q, expected one of: %s", cfg.Op, strings.Join(Operators(), ", "))
	}
	if cfg.Op == OpExpr {
		if cfg.Expr == "" {
			return errors.New(`operator "expr" requires an expr`)
		}
		expr, err := hclexpr.Parse(cfg.Expr, n.ID)
		if err != nil {
			return err
		}
		if err := hclexpr.Check(expr, "input", "compare"); err != nil {
			return err
		}
	}

	if len(n.Outputs) != 2 {
		return fmt.Errorf("condition nodes must declare exactly the %q and %q output ports", model.PortTrue, model.PortFalse)
	}
	for _, id := range []string{model.PortTrue, model.PortFalse} {
		if _, ok := n.Output(id); !ok {
			return fmt.Errorf("condition nodes must declare the %q output port", id)
		}
	}

	if len(n.Inputs) == 0 {
		return errors.New("condition nodes need an input port")
	}
	if _, err := inputPort(n, cfg); err != nil {
		return err
	}
	return nil
}

func (k *Kind) Unit(n *model.Node, _ map[string]cty.Value) (script.Unit, error) {
	cfg, err := decode(n)
	if err != nil {
		return nil, err
	}
	port, err := inputPort(n, cfg)
	if err != nil {
		return nil, err
	}
	compare, err := ctyval.FromGo(cfg.Compare)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	var expr hcl.Expression
	if cfg.Op == OpExpr {
		if expr, err = hclexpr.Parse(cfg.Expr, n.ID); err != nil {
			return nil, err
		}
	}

	return script.Func(func(ctx context.Context, inputs map[string]cty.Value) (map[string]cty.Value, error) {
		v, ok := inputs[port]
		if !ok || v == cty.NilVal {
			v = cty.NullVal(cty.DynamicPseudoType)
		}
		fired := model.PortFalse
		if Evaluate(cfg.Op, v, compare, expr) {
			fired = model.PortTrue
		}
		return map[string]cty.Value{fired: v}, nil
	}), nil
}

// Operators returns the supported operator names, sorted.
func Operators() []string {
	names := make([]string, 0, len(operators))
	for name := range operators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func decode(n *model.Node) (Config, error) {
	var cfg Config
	err := registry.DecodeConfig(n.Config, &cfg)
	return cfg, err
}

func inputPort(n *model.Node, cfg Config) (string, error) {
	if cfg.Port != "" {
		if _, ok := n.Input(cfg.Port); !ok {
			return "", fmt.Errorf("port %q is not an input port", cfg.Port)
		}
		return cfg.Port, nil
	}
	if _, ok := n.Input("value"); ok {
		return "value", nil
	}
	if len(n.Inputs) == 1 {
		return n.Inputs[0].ID, nil
	}
	return "", errors.New(`condition nodes with several inputs must set "port"`)
}
