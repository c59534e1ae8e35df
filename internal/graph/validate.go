package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/specialistvlad/gridflow/internal/model"
)

// KindChecker reports whether a node's kind is registered and accepts the
// node's config. registry.Registry implements it.
type KindChecker interface {
	CheckNode(n *model.Node) error
}

// ValidationResult collects every problem found in a graph.
type ValidationResult struct {
	Errors []error
}

// OK reports whether the graph is valid.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Err joins all problems into one error, or returns nil for a valid graph.
func (r ValidationResult) Err() error {
	if r.OK() {
		return nil
	}
	return errors.Join(r.Errors...)
}

// Validate checks g for structural problems. kinds may be nil, in which case
// node kinds and configs are not checked.
func Validate(g *model.Graph, kinds KindChecker) ValidationResult {
	var res ValidationResult
	if g == nil {
		res.Errors = append(res.Errors, fmt.Errorf("%w: graph is nil", ErrInvalidGraph))
		return res
	}

	nodes := make(map[string]*model.Node, len(g.Nodes))
	for _, n := range g.Nodes {
		if n == nil {
			continue
		}
		if _, dup := nodes[n.ID]; dup {
			res.Errors = append(res.Errors, &DuplicateIDError{Entity: "node", ID: n.ID})
			continue
		}
		nodes[n.ID] = n
		res.Errors = append(res.Errors, checkNode(n, kinds)...)
	}

	edgeIDs := make(map[string]struct{}, len(g.Edges))
	incoming := make(map[string][]string) // "node\x00port" -> edge ids
	for _, e := range g.Edges {
		if e == nil {
			continue
		}
		if _, dup := edgeIDs[e.ID]; dup {
			res.Errors = append(res.Errors, &DuplicateIDError{Entity: "edge", ID: e.ID})
		}
		edgeIDs[e.ID] = struct{}{}

		src, srcErr := resolve(nodes, e, true)
		dst, dstErr := resolve(nodes, e, false)
		if srcErr != nil {
			res.Errors = append(res.Errors, srcErr)
		}
		if dstErr != nil {
			res.Errors = append(res.Errors, dstErr)
		}
		if srcErr != nil || dstErr != nil {
			continue
		}
		if !dst.Type.AcceptsFrom(src.Type) {
			res.Errors = append(res.Errors, &TypeMismatchError{EdgeID: e.ID, SourceType: src.Type, DestType: dst.Type})
		}
		key := e.DestNode + "\x00" + e.DestPort
		incoming[key] = append(incoming[key], e.ID)
	}

	keys := make([]string, 0, len(incoming))
	for k := range incoming {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if ids := incoming[k]; len(ids) > 1 {
			nodeID, portID := splitKey(k)
			res.Errors = append(res.Errors, &FanInError{NodeID: nodeID, PortID: portID, EdgeIDs: ids})
		}
	}

	if cycle := findCycle(g, nodes); cycle != nil {
		res.Errors = append(res.Errors, cycle)
	}
	return res
}

func checkNode(n *model.Node, kinds KindChecker) []error {
	var errs []error
	if n.ID == "" {
		errs = append(errs, &NodeConfigError{NodeID: n.ID, Kind: n.Kind, Err: errors.New("node id must not be empty")})
	}
	for _, dir := range []struct {
		name  string
		ports []model.Port
	}{{"input", n.Inputs}, {"output", n.Outputs}} {
		seen := make(map[string]struct{}, len(dir.ports))
		for _, p := range dir.ports {
			if _, dup := seen[p.ID]; dup {
				errs = append(errs, &NodeConfigError{NodeID: n.ID, Kind: n.Kind, Err: fmt.Errorf("duplicate %s port %q", dir.name, p.ID)})
			}
			seen[p.ID] = struct{}{}
		}
	}
	if kinds != nil {
		if err := kinds.CheckNode(n); err != nil {
			errs = append(errs, &NodeConfigError{NodeID: n.ID, Kind: n.Kind, Err: err})
		}
	}
	return errs
}

func resolve(nodes map[string]*model.Node, e *model.Edge, source bool) (model.Port, error) {
	side, nodeID, portID := "destination", e.DestNode, e.DestPort
	if source {
		side, nodeID, portID = "source", e.SourceNode, e.SourcePort
	}
	dangling := func(reason string) error {
		return &DanglingEdgeError{EdgeID: e.ID, Side: side, NodeID: nodeID, PortID: portID, Reason: reason}
	}

	n, ok := nodes[nodeID]
	if !ok {
		return model.Port{}, dangling("node does not exist")
	}
	if source {
		if p, ok := n.Output(portID); ok {
			return p, nil
		}
		if _, ok := n.Input(portID); ok {
			return model.Port{}, dangling("port is an input, edges must start at an output")
		}
		return model.Port{}, dangling("output port does not exist")
	}
	if p, ok := n.Input(portID); ok {
		return p, nil
	}
	if _, ok := n.Output(portID); ok {
		return model.Port{}, dangling("port is an output, edges must end at an input")
	}
	return model.Port{}, dangling("input port does not exist")
}

func splitKey(k string) (string, string) {
	for i := 0; i < len(k); i++ {
		if k[i] == 0 {
			return k[:i], k[i+1:]
		}
	}
	return k, ""
}

// findCycle runs a depth-first search over every edge whose endpoints are
// existing nodes, regardless of port validity.
func findCycle(g *model.Graph, nodes map[string]*model.Node) *CycleError {
	adj := successors(g, nodes)

	const (
		unvisited = iota
		onStack
		done
	)
	state := make(map[string]int, len(nodes))
	var stack []string

	var visit func(id string) *CycleError
	visit = func(id string) *CycleError {
		state[id] = onStack
		stack = append(stack, id)
		for _, next := range adj[id] {
			switch state[next] {
			case onStack:
				start := 0
				for i, s := range stack {
					if s == next {
						start = i
						break
					}
				}
				path := append(append([]string(nil), stack[start:]...), next)
				return &CycleError{Path: path}
			case unvisited:
				if c := visit(next); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return nil
	}

	for _, id := range sortedIDs(nodes) {
		if state[id] == unvisited {
			if c := visit(id); c != nil {
				return c
			}
		}
	}
	return nil
}

// successors returns the sorted, de-duplicated successor list of every node.
func successors(g *model.Graph, nodes map[string]*model.Node) map[string][]string {
	sets := make(map[string]map[string]struct{}, len(nodes))
	for _, e := range g.Edges {
		if e == nil {
			continue
		}
		if _, ok := nodes[e.SourceNode]; !ok {
			continue
		}
		if _, ok := nodes[e.DestNode]; !ok {
			continue
		}
		if sets[e.SourceNode] == nil {
			sets[e.SourceNode] = make(map[string]struct{})
		}
		sets[e.SourceNode][e.DestNode] = struct{}{}
	}
	adj := make(map[string][]string, len(sets))
	for id, set := range sets {
		list := make([]string, 0, len(set))
		for next := range set {
			list = append(list, next)
		}
		sort.Strings(list)
		adj[id] = list
	}
	return adj
}

func sortedIDs(nodes map[string]*model.Node) []string {
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
