package testutil

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/gridflow/internal/model"
)

// In declares a required input port.
func In(id string, t model.ValueType) model.Port { return model.Port{ID: id, Type: t} }

// OptIn declares an optional input port.
func OptIn(id string, t model.ValueType) model.Port {
	return model.Port{ID: id, Type: t, Optional: true}
}

// Out declares an output port.
func Out(id string, t model.ValueType) model.Port { return model.Port{ID: id, Type: t} }

// GraphBuilder assembles model.Graph fixtures for tests.
type GraphBuilder struct {
	g *model.Graph
}

// NewGraph starts an empty graph.
func NewGraph() *GraphBuilder {
	return &GraphBuilder{g: &model.Graph{}}
}

// Node adds a node with the given kind, config and ports.
func (b *GraphBuilder) Node(id, kind string, cfg map[string]any, inputs []model.Port, outputs []model.Port) *GraphBuilder {
	b.g.Nodes = append(b.g.Nodes, &model.Node{ID: id, Kind: kind, Config: cfg, Inputs: inputs, Outputs: outputs})
	return b
}

// Input adds an Input node with a single "value" output.
func (b *GraphBuilder) Input(id string, t model.ValueType) *GraphBuilder {
	return b.Node(id, model.KindInput, nil, nil, []model.Port{Out("value", t)})
}

// Process adds a Process node.
func (b *GraphBuilder) Process(id string, cfg map[string]any, inputs []model.Port, outputs []model.Port) *GraphBuilder {
	return b.Node(id, model.KindProcess, cfg, inputs, outputs)
}

// Condition adds a Condition node with a dynamic "value" input and the
// true/false outputs.
func (b *GraphBuilder) Condition(id, op string, compare any) *GraphBuilder {
	cfg := map[string]any{"op": op}
	if compare != nil {
		cfg["compare"] = compare
	}
	return b.Node(id, model.KindCondition, cfg,
		[]model.Port{In("value", model.TypeDynamic)},
		[]model.Port{Out(model.PortTrue, model.TypeDynamic), Out(model.PortFalse, model.TypeDynamic)})
}

// Output adds an Output node with a single "value" input.
func (b *GraphBuilder) Output(id string, t model.ValueType) *GraphBuilder {
	return b.Node(id, model.KindOutput, nil, []model.Port{In("value", t)}, nil)
}

// Edge connects "node.port" to "node.port". Edge ids are assigned in order
// as e1, e2, ...
func (b *GraphBuilder) Edge(from, to string) *GraphBuilder {
	return b.EdgeID(fmt.Sprintf("e%d", len(b.g.Edges)+1), from, to)
}

// EdgeID connects two ports using an explicit edge id.
func (b *GraphBuilder) EdgeID(id, from, to string) *GraphBuilder {
	sn, sp := split(from)
	dn, dp := split(to)
	b.g.Edges = append(b.g.Edges, &model.Edge{ID: id, SourceNode: sn, SourcePort: sp, DestNode: dn, DestPort: dp})
	return b
}

// Build returns the assembled graph.
func (b *GraphBuilder) Build() *model.Graph {
	return b.g
}

func split(ref string) (string, string) {
	i := strings.LastIndex(ref, ".")
	if i < 0 {
		return ref, "value"
	}
	return ref[:i], ref[i+1:]
}
