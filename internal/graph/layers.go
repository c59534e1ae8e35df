package graph

import (
	"sort"

	"github.com/specialistvlad/gridflow/internal/model"
)

// TopologicalLayers partitions the nodes of g into layers. Every node's
// predecessors are in strictly earlier layers and ids inside a layer are
// sorted ascending. Edges that reference unknown nodes are ignored; a cycle
// yields a *CycleError.
func TopologicalLayers(g *model.Graph) ([][]string, error) {
	nodes := make(map[string]*model.Node, len(g.Nodes))
	for _, n := range g.Nodes {
		if n != nil {
			nodes[n.ID] = n
		}
	}
	adj := successors(g, nodes)

	indegree := make(map[string]int, len(nodes))
	for id := range nodes {
		indegree[id] = 0
	}
	for _, next := range adj {
		for _, id := range next {
			indegree[id]++
		}
	}

	var current []string
	for id, d := range indegree {
		if d == 0 {
			current = append(current, id)
		}
	}

	var layers [][]string
	placed := 0
	for len(current) > 0 {
		sort.Strings(current)
		layers = append(layers, current)
		placed += len(current)

		var next []string
		for _, id := range current {
			for _, succ := range adj[id] {
				indegree[succ]--
				if indegree[succ] == 0 {
					next = append(next, succ)
				}
			}
		}
		current = next
	}

	if placed != len(nodes) {
		if c := findCycle(g, nodes); c != nil {
			return nil, c
		}
		return nil, &CycleError{}
	}
	return layers, nil
}
