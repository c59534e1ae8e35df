package process

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/gridflow/internal/ctyval"
	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/script"
	"github.com/zclconf/go-cty/cty"
)

type transformFunc func(n *model.Node, cfg Config, inputs map[string]cty.Value) (map[string]cty.Value, error)

var transforms = map[string]transformFunc{
	"identity": mapEach(func(v cty.Value) cty.Value { return v }),
	"upper":    mapEach(func(v cty.Value) cty.Value { return cty.StringVal(strings.ToUpper(ctyval.String(v))) }),
	"lower":    mapEach(func(v cty.Value) cty.Value { return cty.StringVal(strings.ToLower(ctyval.String(v))) }),
	"concat":   concat,
}

func transform(n *model.Node, cfg Config) (script.Unit, error) {
	fn, ok := transforms[cfg.Transform]
	if !ok {
		return nil, fmt.Errorf("unknown transform %q", cfg.Transform)
	}
	return script.Func(func(ctx context.Context, inputs map[string]cty.Value) (map[string]cty.Value, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return fn(n, cfg, inputs)
	}), nil
}

// mapEach copies an input to the output port of the same id, or the single
// input to every output port, applying fn on the way.
func mapEach(fn func(cty.Value) cty.Value) transformFunc {
	return func(n *model.Node, _ Config, inputs map[string]cty.Value) (map[string]cty.Value, error) {
		out := make(map[string]cty.Value, len(n.Outputs))
		for _, p := range n.Outputs {
			if v, ok := inputs[p.ID]; ok {
				out[p.ID] = fn(v)
				continue
			}
			if len(inputs) == 1 {
				for _, v := range inputs {
					out[p.ID] = fn(v)
				}
			}
		}
		return out, nil
	}
}

// concat joins the textual form of every delivered input, in declared port
// order, and publishes the result on every output port.
func concat(n *model.Node, cfg Config, inputs map[string]cty.Value) (map[string]cty.Value, error) {
	var parts []string
	for _, p := range n.Inputs {
		if v, ok := inputs[p.ID]; ok {
			parts = append(parts, ctyval.String(v))
		}
	}
	joined := cty.StringVal(strings.Join(parts, cfg.Separator))
	out := make(map[string]cty.Value, len(n.Outputs))
	for _, p := range n.Outputs {
		out[p.ID] = joined
	}
	return out, nil
}
