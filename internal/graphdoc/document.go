package graphdoc

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/specialistvlad/gridflow/internal/model"
)

// Document is the serialized form of a graph.
type Document struct {
	Nodes []Node `json:"nodes" yaml:"nodes" validate:"dive"`
	Edges []Edge `json:"edges" yaml:"edges" validate:"dive"`
}

// Node is one node entry of a Document.
type Node struct {
	ID      string         `json:"id" yaml:"id" validate:"required"`
	Kind    string         `json:"kind" yaml:"kind" validate:"required"`
	Config  map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	Inputs  []Port         `json:"inputs,omitempty" yaml:"inputs,omitempty" validate:"dive"`
	Outputs []Port         `json:"outputs,omitempty" yaml:"outputs,omitempty" validate:"dive"`
}

// Port is one port entry of a Node.
type Port struct {
	PortID    string `json:"portId" yaml:"portId" validate:"required"`
	ValueType string `json:"valueType,omitempty" yaml:"valueType,omitempty"`
	Optional  bool   `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// Edge is one edge entry of a Document. An empty ID is derived from the
// endpoints.
type Edge struct {
	ID           string `json:"id,omitempty" yaml:"id,omitempty"`
	SourceNodeID string `json:"sourceNodeId" yaml:"sourceNodeId" validate:"required"`
	SourcePortID string `json:"sourcePortId" yaml:"sourcePortId" validate:"required"`
	DestNodeID   string `json:"destNodeId" yaml:"destNodeId" validate:"required"`
	DestPortID   string `json:"destPortId" yaml:"destPortId" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Merge concatenates the nodes and edges of several documents.
func Merge(docs ...*Document) *Document {
	out := &Document{}
	for _, d := range docs {
		if d == nil {
			continue
		}
		out.Nodes = append(out.Nodes, d.Nodes...)
		out.Edges = append(out.Edges, d.Edges...)
	}
	return out
}

// Graph converts the document into a model.Graph. It checks the document's
// shape only; structural validation is graph.Validate's job.
func (d *Document) Graph() (*model.Graph, error) {
	if err := validate.Struct(d); err != nil {
		return nil, fmt.Errorf("invalid graph document: %w", err)
	}

	g := &model.Graph{
		Nodes: make([]*model.Node, 0, len(d.Nodes)),
		Edges: make([]*model.Edge, 0, len(d.Edges)),
	}
	var errs []error
	for _, n := range d.Nodes {
		node := &model.Node{ID: n.ID, Kind: n.Kind, Config: n.Config}
		var err error
		if node.Inputs, err = ports(n.Inputs); err != nil {
			errs = append(errs, fmt.Errorf("node '%s' inputs: %w", n.ID, err))
		}
		if node.Outputs, err = ports(n.Outputs); err != nil {
			errs = append(errs, fmt.Errorf("node '%s' outputs: %w", n.ID, err))
		}
		g.Nodes = append(g.Nodes, node)
	}
	for _, e := range d.Edges {
		id := e.ID
		if id == "" {
			id = fmt.Sprintf("%s.%s->%s.%s", e.SourceNodeID, e.SourcePortID, e.DestNodeID, e.DestPortID)
		}
		g.Edges = append(g.Edges, &model.Edge{
			ID:         id,
			SourceNode: e.SourceNodeID,
			SourcePort: e.SourcePortID,
			DestNode:   e.DestNodeID,
			DestPort:   e.DestPortID,
		})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return g, nil
}

func ports(in []Port) ([]model.Port, error) {
	out := make([]model.Port, 0, len(in))
	var errs []error
	for _, p := range in {
		t, err := model.ParseValueType(p.ValueType)
		if err != nil {
			errs = append(errs, fmt.Errorf("port '%s': %w", p.PortID, err))
			continue
		}
		out = append(out, model.Port{ID: p.PortID, Type: t, Optional: p.Optional})
	}
	return out, errors.Join(errs...)
}

// FromGraph converts g back into a Document.
func FromGraph(g *model.Graph) *Document {
	d := &Document{}
	for _, n := range g.Nodes {
		d.Nodes = append(d.Nodes, Node{
			ID:      n.ID,
			Kind:    n.Kind,
			Config:  n.Config,
			Inputs:  portDocs(n.Inputs),
			Outputs: portDocs(n.Outputs),
		})
	}
	for _, e := range g.Edges {
		d.Edges = append(d.Edges, Edge{
			ID:           e.ID,
			SourceNodeID: e.SourceNode,
			SourcePortID: e.SourcePort,
			DestNodeID:   e.DestNode,
			DestPortID:   e.DestPort,
		})
	}
	return d
}

func portDocs(ps []model.Port) []Port {
	if len(ps) == 0 {
		return nil
	}
	out := make([]Port, 0, len(ps))
	for _, p := range ps {
		out = append(out, Port{PortID: p.ID, ValueType: string(p.Type), Optional: p.Optional})
	}
	return out
}
