package hclexpr

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// ErrNotBoolean is returned by EvalBool when the expression yields anything
// but a known, non-null boolean.
var ErrNotBoolean = errors.New("expression did not evaluate to a boolean")

// Functions is the function table available to expressions.
func Functions() map[string]function.Function {
	return map[string]function.Function{
		"abs":        stdlib.AbsoluteFunc,
		"jsondecode": stdlib.JSONDecodeFunc,
		"length":     stdlib.LengthFunc,
		"lower":      stdlib.LowerFunc,
		"strlen":     stdlib.StrlenFunc,
		"trimspace":  stdlib.TrimSpaceFunc,
		"upper":      stdlib.UpperFunc,
	}
}

// Parse parses src as a single HCL expression.
func Parse(src, filename string) (hclsyntax.Expression, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, diags
	}
	return expr, nil
}

// Usage lists what an expression touches: the root names of the variables
// it reads and the functions it calls, both sorted and unique.
type Usage struct {
	Variables []string
	Functions []string
}

// Analyze collects the Usage of expr. Function calls are only found in
// native syntax expressions.
func Analyze(expr hcl.Expression) Usage {
	vars := make(map[string]struct{})
	for _, t := range expr.Variables() {
		vars[t.RootName()] = struct{}{}
	}
	funcs := make(map[string]struct{})
	if node, ok := expr.(hclsyntax.Node); ok {
		hclsyntax.VisitAll(node, func(n hclsyntax.Node) hcl.Diagnostics {
			if call, ok := n.(*hclsyntax.FunctionCallExpr); ok {
				funcs[call.Name] = struct{}{}
			}
			return nil
		})
	}
	return Usage{Variables: sortedKeys(vars), Functions: sortedKeys(funcs)}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Check reports every variable outside vars and every function missing from
// Functions.
func Check(expr hcl.Expression, vars ...string) error {
	usage := Analyze(expr)
	funcs := Functions()
	var errs []error
	for _, name := range usage.Variables {
		if !slices.Contains(vars, name) {
			errs = append(errs, fmt.Errorf("unknown variable %q, expected one of: %s", name, strings.Join(vars, ", ")))
		}
	}
	for _, name := range usage.Functions {
		if _, ok := funcs[name]; !ok {
			errs = append(errs, fmt.Errorf("unknown function %q", name))
		}
	}
	return errors.Join(errs...)
}

// EvalBool evaluates expr with the given variables and converts the result
// to a Go bool.
func EvalBool(expr hcl.Expression, vars map[string]cty.Value) (bool, error) {
	v, diags := expr.Value(&hcl.EvalContext{Variables: vars, Functions: Functions()})
	if diags.HasErrors() {
		return false, diags
	}
	v, err := convert.Convert(v, cty.Bool)
	if err != nil || v.IsNull() || !v.IsKnown() {
		return false, ErrNotBoolean
	}
	return v.True(), nil
}
