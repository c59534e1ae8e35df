// Package topologystore defines the interface for storing and querying the
// static structure of a validated graph during a run.
//
// # Why Topology Store Exists
//
// The topology store isolates the **immutable graph structure** (nodes and the
// edges between their ports) from the **mutable execution state** (node
// results) managed by nodestore. The scheduler asks the topology which edges
// feed a node and which nodes depend on it; it never mutates it.
//
// # Lifecycle and Usage
//
// The topology store is:
//  1. **Created** once per run from the engine's frozen copy of the graph
//  2. **Populated** by Load, after validation has succeeded
//  3. **Read-only** while the scheduler walks the layers
//  4. **Discarded** when the run finishes
//
// Queries return slices in a deterministic order (sorted by id) so that skip
// propagation and logging do not depend on map iteration order.
package topologystore

import (
	"context"
	"fmt"

	"github.com/specialistvlad/gridflow/internal/model"
)

// Store is the interface for the static topology of a graph.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent reads. Writes only happen
// before the run starts.
//
// See internal/inmemorytopology for the in-memory implementation.
type Store interface {
	// AddNode registers a node. Adding the same node id twice is idempotent.
	AddNode(ctx context.Context, n *model.Node) error

	// AddEdge registers an edge. Both endpoint nodes must already exist.
	AddEdge(ctx context.Context, e *model.Edge) error

	// Node retrieves a single node by id.
	Node(ctx context.Context, id string) (*model.Node, bool)

	// AllNodes returns every node, sorted by id.
	AllNodes(ctx context.Context) []*model.Node

	// Incoming returns the edges whose destination is id, sorted by
	// destination port then edge id.
	Incoming(ctx context.Context, id string) ([]*model.Edge, error)

	// Outgoing returns the edges whose source is id, sorted by source port
	// then edge id.
	Outgoing(ctx context.Context, id string) ([]*model.Edge, error)

	// DependenciesOf returns the sorted, unique ids of the nodes id directly
	// depends on.
	DependenciesOf(ctx context.Context, id string) ([]string, error)
}

// Load populates s with every node and edge of g.
func Load(ctx context.Context, s Store, g *model.Graph) error {
	for _, n := range g.Nodes {
		if err := s.AddNode(ctx, n); err != nil {
			return fmt.Errorf("adding node '%s': %w", n.ID, err)
		}
	}
	for _, e := range g.Edges {
		if err := s.AddEdge(ctx, e); err != nil {
			return fmt.Errorf("adding edge '%s': %w", e.ID, err)
		}
	}
	return nil
}
