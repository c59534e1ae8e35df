package graphdoc

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/gridflow/internal/ctyval"
	"github.com/specialistvlad/gridflow/internal/hclexpr"
	"github.com/specialistvlad/gridflow/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// hclFile represents the top-level structure of a graph file for decoding.
type hclFile struct {
	Nodes []*hclNode `hcl:"node,block"`
	Edges []*hclEdge `hcl:"edge,block"`
}

type hclNode struct {
	ID      string         `hcl:"id,label"`
	Kind    string         `hcl:"kind"`
	Config  hcl.Expression `hcl:"config,optional"`
	Inputs  []*hclPort     `hcl:"input,block"`
	Outputs []*hclPort     `hcl:"output,block"`
}

type hclPort struct {
	ID       string         `hcl:"id,label"`
	Type     hcl.Expression `hcl:"type,optional"`
	Optional bool           `hcl:"optional,optional"`
}

type hclEdge struct {
	ID   string `hcl:"id,label"`
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

// DecodeHCL parses an HCL graph file.
func DecodeHCL(src []byte, filename string) (*Document, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	d := &Document{}
	evalCtx := &hcl.EvalContext{Functions: hclexpr.Functions()}
	for _, n := range parsed.Nodes {
		node, diags := decodeNode(n, evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("error in node '%s' of %s: %w", n.ID, filename, diags)
		}
		d.Nodes = append(d.Nodes, node)
	}
	for _, e := range parsed.Edges {
		edge, err := decodeEdge(e)
		if err != nil {
			return nil, fmt.Errorf("error in edge '%s' of %s: %w", e.ID, filename, err)
		}
		d.Edges = append(d.Edges, edge)
	}
	return d, nil
}

func decodeNode(n *hclNode, evalCtx *hcl.EvalContext) (Node, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	out := Node{ID: n.ID, Kind: n.Kind}

	if n.Config != nil {
		v, cfgDiags := n.Config.Value(evalCtx)
		diags = append(diags, cfgDiags...)
		if !cfgDiags.HasErrors() && !v.IsNull() {
			cfg, err := configMap(v)
			if err != nil {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid node config",
					Detail:   err.Error(),
					Subject:  n.Config.Range().Ptr(),
				})
			}
			out.Config = cfg
		}
	}

	for _, p := range n.Inputs {
		t, typeDiags := portType(p.Type)
		diags = append(diags, typeDiags...)
		out.Inputs = append(out.Inputs, Port{PortID: p.ID, ValueType: t, Optional: p.Optional})
	}
	for _, p := range n.Outputs {
		t, typeDiags := portType(p.Type)
		diags = append(diags, typeDiags...)
		if p.Optional {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unsupported argument",
				Detail:   fmt.Sprintf("Output port %q cannot be optional.", p.ID),
			})
		}
		out.Outputs = append(out.Outputs, Port{PortID: p.ID, ValueType: t})
	}
	return out, diags
}

func configMap(v cty.Value) (map[string]any, error) {
	if !v.Type().IsObjectType() && !v.Type().IsMapType() {
		return nil, fmt.Errorf("config must be an object, got %s", v.Type().FriendlyName())
	}
	raw, err := ctyval.ToGo(v)
	if err != nil {
		return nil, err
	}
	m, _ := raw.(map[string]any)
	return m, nil
}

// portType reads a port type given either as a bare keyword (`string`) or as
// a quoted type name. A missing attribute means dynamic.
func portType(expr hcl.Expression) (string, hcl.Diagnostics) {
	if expr == nil {
		return "", nil
	}
	if traversal, diags := hcl.AbsTraversalForExpr(expr); !diags.HasErrors() {
		if len(traversal) != 1 {
			return "", hcl.Diagnostics{invalidType(expr)}
		}
		return traversal.RootName(), nil
	}

	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return "", hcl.Diagnostics{invalidType(expr)}
	}
	if v.IsNull() {
		return "", nil
	}
	if v.Type() != cty.String {
		return "", hcl.Diagnostics{invalidType(expr)}
	}
	return v.AsString(), nil
}

func invalidType(expr hcl.Expression) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  "Invalid type specification",
		Detail:   "The 'type' attribute must be a type keyword like string, number, bool or any.",
		Subject:  expr.Range().Ptr(),
	}
}

func decodeEdge(e *hclEdge) (Edge, error) {
	from, err := nodeid.Parse(e.From)
	if err != nil {
		return Edge{}, fmt.Errorf("from: %w", err)
	}
	to, err := nodeid.Parse(e.To)
	if err != nil {
		return Edge{}, fmt.Errorf("to: %w", err)
	}
	return Edge{
		ID:           e.ID,
		SourceNodeID: from.Node,
		SourcePortID: from.Port,
		DestNodeID:   to.Node,
		DestPortID:   to.Port,
	}, nil
}
