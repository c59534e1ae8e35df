package inmemorytopology

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/topologystore"
)

// Store implements the topologystore.Store interface using maps and a mutex
// for thread-safe concurrent access.
type Store struct {
	mu       sync.RWMutex
	nodes    map[string]*model.Node
	incoming map[string][]*model.Edge // Key: destination node ID
	outgoing map[string][]*model.Edge // Key: source node ID
}

// New creates a new, empty in-memory topology store.
func New() topologystore.Store {
	return &Store{
		nodes:    make(map[string]*model.Node),
		incoming: make(map[string][]*model.Edge),
		outgoing: make(map[string][]*model.Edge),
	}
}

// AddNode adds a new node to the store.
func (s *Store) AddNode(ctx context.Context, n *model.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[n.ID]; exists {
		// Adding the same node twice is not an error, it's idempotent.
		return nil
	}
	s.nodes[n.ID] = n
	return nil
}

// AddEdge links two existing nodes.
func (s *Store) AddEdge(ctx context.Context, e *model.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[e.SourceNode]; !exists {
		return fmt.Errorf("edge source node '%s' not found in topology", e.SourceNode)
	}
	if _, exists := s.nodes[e.DestNode]; !exists {
		return fmt.Errorf("edge destination node '%s' not found in topology", e.DestNode)
	}

	s.incoming[e.DestNode] = insertSorted(s.incoming[e.DestNode], e, func(e *model.Edge) string { return e.DestPort })
	s.outgoing[e.SourceNode] = insertSorted(s.outgoing[e.SourceNode], e, func(e *model.Edge) string { return e.SourcePort })
	return nil
}

// Node retrieves a single node by id.
func (s *Store) Node(ctx context.Context, id string) (*model.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	return n, ok
}

// AllNodes returns all nodes sorted by id.
func (s *Store) AllNodes(ctx context.Context) []*model.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]*model.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Incoming returns the edges feeding id.
func (s *Store) Incoming(ctx context.Context, id string) ([]*model.Edge, error) {
	return s.edges(id, s.incoming)
}

// Outgoing returns the edges leaving id.
func (s *Store) Outgoing(ctx context.Context, id string) ([]*model.Edge, error) {
	return s.edges(id, s.outgoing)
}

// DependenciesOf returns the ids of all nodes that the given node depends on.
func (s *Store) DependenciesOf(ctx context.Context, id string) ([]string, error) {
	in, err := s.Incoming(ctx, id)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(in))
	deps := make([]string, 0, len(in))
	for _, e := range in {
		if _, ok := seen[e.SourceNode]; ok {
			continue
		}
		seen[e.SourceNode] = struct{}{}
		deps = append(deps, e.SourceNode)
	}
	sort.Strings(deps)
	return deps, nil
}

func (s *Store) edges(id string, index map[string][]*model.Edge) ([]*model.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.nodes[id]; !exists {
		return nil, fmt.Errorf("node '%s' not found in topology", id)
	}
	out := make([]*model.Edge, len(index[id]))
	copy(out, index[id])
	return out, nil
}

func insertSorted(edges []*model.Edge, e *model.Edge, port func(*model.Edge) string) []*model.Edge {
	i := sort.Search(len(edges), func(i int) bool {
		pi, pe := port(edges[i]), port(e)
		if pi != pe {
			return pi > pe
		}
		return edges[i].ID > e.ID
	})
	edges = append(edges, nil)
	copy(edges[i+1:], edges[i:])
	edges[i] = e
	return edges
}
