// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the structural part of the model: nodes, their ports and
// the edges between them.
package model

// Built-in node kinds. Other kinds can be added through the registry.
const (
	KindInput     = "input"
	KindProcess   = "process"
	KindCondition = "condition"
	KindOutput    = "output"
)

// Output ports of a Condition node. Exactly one of them fires per evaluation.
const (
	PortTrue  = "true"
	PortFalse = "false"
)

// Port is a typed, named slot through which a single value flows.
type Port struct {
	ID   string
	Type ValueType
	// Optional is only meaningful for input ports. An optional input whose
	// incoming edge did not fire does not prevent the node from running.
	Optional bool
}

// Node is a single step of the workflow graph.
type Node struct {
	ID      string
	Kind    string
	Inputs  []Port
	Outputs []Port
	// Config is the kind-specific payload, e.g. a script body or a comparison
	// operator. It is decoded by the node's Kind.
	Config map[string]any
}

// Input returns the input port with the given id.
func (n *Node) Input(id string) (Port, bool) {
	return findPort(n.Inputs, id)
}

// Output returns the output port with the given id.
func (n *Node) Output(id string) (Port, bool) {
	return findPort(n.Outputs, id)
}

func findPort(ports []Port, id string) (Port, bool) {
	for _, p := range ports {
		if p.ID == id {
			return p, true
		}
	}
	return Port{}, false
}

// Edge connects one output port to one input port.
type Edge struct {
	ID         string
	SourceNode string
	SourcePort string
	DestNode   string
	DestPort   string
}

// Graph is a set of nodes and the edges between them.
type Graph struct {
	Nodes []*Node
	Edges []*Edge
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *Node {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Clone returns a deep copy of the graph, including node configuration.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}
	out := &Graph{
		Nodes: make([]*Node, 0, len(g.Nodes)),
		Edges: make([]*Edge, 0, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		c := &Node{
			ID:      n.ID,
			Kind:    n.Kind,
			Inputs:  append([]Port(nil), n.Inputs...),
			Outputs: append([]Port(nil), n.Outputs...),
		}
		if n.Config != nil {
			c.Config = cloneValue(n.Config).(map[string]any)
		}
		out.Nodes = append(out.Nodes, c)
	}
	for _, e := range g.Edges {
		c := *e
		out.Edges = append(out.Edges, &c)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = cloneValue(val)
		}
		return s
	default:
		return v
	}
}
