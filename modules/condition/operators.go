package condition

import (
	"regexp"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/gridflow/internal/ctyval"
	"github.com/specialistvlad/gridflow/internal/hclexpr"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Operator names.
const (
	OpEquals      = "equals"
	OpNotEquals   = "not_equals"
	OpContains    = "contains"
	OpNotContains = "not_contains"
	OpStartsWith  = "starts_with"
	OpEndsWith    = "ends_with"
	OpGT          = "gt"
	OpGTE         = "gte"
	OpLT          = "lt"
	OpLTE         = "lte"
	OpMatches     = "matches"
	OpIsEmpty     = "is_empty"
	OpIsTrue      = "is_true"
	OpExpr        = "expr"
)

type operator func(input, compare cty.Value) bool

var operators = map[string]operator{
	OpEquals:      equals,
	OpNotEquals:   func(a, b cty.Value) bool { return !equals(a, b) },
	OpContains:    contains,
	OpNotContains: func(a, b cty.Value) bool { return !contains(a, b) },
	OpStartsWith:  texts(strings.HasPrefix),
	OpEndsWith:    texts(strings.HasSuffix),
	OpGT:          numbers(func(c int) bool { return c > 0 }),
	OpGTE:         numbers(func(c int) bool { return c >= 0 }),
	OpLT:          numbers(func(c int) bool { return c < 0 }),
	OpLTE:         numbers(func(c int) bool { return c <= 0 }),
	OpMatches:     matches,
	OpIsEmpty:     func(a, _ cty.Value) bool { return isEmpty(a) },
	OpIsTrue:      func(a, _ cty.Value) bool { return isTrue(a) },
	OpExpr:        nil,
}

// Evaluate applies op to input and compare. Operands that cannot be
// compared, unknown operators and failing expressions all yield false.
func Evaluate(op string, input, compare cty.Value, expr hcl.Expression) bool {
	if !input.IsWhollyKnown() || !compare.IsWhollyKnown() {
		return false
	}
	if op == OpExpr {
		if expr == nil {
			return false
		}
		ok, err := hclexpr.EvalBool(expr, map[string]cty.Value{"input": input, "compare": compare})
		return err == nil && ok
	}
	fn, ok := operators[op]
	if !ok || fn == nil {
		return false
	}
	return fn(input, compare)
}

func equals(a, b cty.Value) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	if a.Type() == cty.Number || b.Type() == cty.Number {
		x, okA := asNumber(a)
		y, okB := asNumber(b)
		if okA && okB {
			return x.Equals(y).True()
		}
	}
	return ctyval.String(a) == ctyval.String(b)
}

func contains(a, b cty.Value) bool {
	if a.IsNull() {
		return false
	}
	ty := a.Type()
	if ty.IsListType() || ty.IsTupleType() || ty.IsSetType() {
		for it := a.ElementIterator(); it.Next(); {
			_, el := it.Element()
			if equals(el, b) {
				return true
			}
		}
		return false
	}
	if ty.IsMapType() || ty.IsObjectType() {
		key := ctyval.String(b)
		if ty.IsObjectType() {
			return ty.HasAttribute(key)
		}
		return a.HasIndex(cty.StringVal(key)).True()
	}
	return strings.Contains(ctyval.String(a), ctyval.String(b))
}

func texts(fn func(s, affix string) bool) operator {
	return func(a, b cty.Value) bool {
		if a.IsNull() {
			return false
		}
		return fn(ctyval.String(a), ctyval.String(b))
	}
}

func numbers(cmp func(int) bool) operator {
	return func(a, b cty.Value) bool {
		x, okA := asNumber(a)
		y, okB := asNumber(b)
		if !okA || !okB {
			return false
		}
		return cmp(x.AsBigFloat().Cmp(y.AsBigFloat()))
	}
}

func matches(a, b cty.Value) bool {
	if a.IsNull() {
		return false
	}
	re, err := regexp.Compile(ctyval.String(b))
	if err != nil {
		return false
	}
	return re.MatchString(ctyval.String(a))
}

func isEmpty(a cty.Value) bool {
	if a.IsNull() {
		return true
	}
	ty := a.Type()
	switch {
	case ty == cty.String:
		return strings.TrimSpace(a.AsString()) == ""
	case ty.IsCollectionType() || ty.IsTupleType():
		return a.LengthInt() == 0
	case ty.IsObjectType():
		return len(ty.AttributeTypes()) == 0
	}
	return false
}

func isTrue(a cty.Value) bool {
	if a.IsNull() {
		return false
	}
	if a.Type() == cty.String {
		a = cty.StringVal(strings.ToLower(strings.TrimSpace(a.AsString())))
	}
	v, err := convert.Convert(a, cty.Bool)
	if err != nil || v.IsNull() {
		return false
	}
	return v.True()
}

func asNumber(v cty.Value) (cty.Value, bool) {
	if v.IsNull() {
		return cty.NilVal, false
	}
	if v.Type() == cty.String {
		v = cty.StringVal(strings.TrimSpace(v.AsString()))
	}
	n, err := convert.Convert(v, cty.Number)
	if err != nil || n.IsNull() {
		return cty.NilVal, false
	}
	return n, true
}
