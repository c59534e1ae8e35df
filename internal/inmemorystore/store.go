package inmemorystore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/nodestore"
)

// Store is an in-memory implementation of nodestore.Store.
//
// Every key is written exactly once, by the worker that executed the node,
// while the coordinator may read concurrently for snapshots. LoadOrStore
// gives the write-once guarantee without a separate lock.
type Store struct {
	results sync.Map // Key: node ID, Value: model.NodeResult
	count   atomic.Int64
}

// New creates a new, empty in-memory result store.
func New() nodestore.Store {
	return &Store{}
}

// Publish records the terminal result of a node, once.
func (s *Store) Publish(ctx context.Context, res model.NodeResult) error {
	if _, loaded := s.results.LoadOrStore(res.NodeID, res); loaded {
		return fmt.Errorf("node '%s': %w", res.NodeID, nodestore.ErrAlreadyPublished)
	}
	s.count.Add(1)
	return nil
}

// Result retrieves the published result of a node.
func (s *Store) Result(ctx context.Context, id string) (model.NodeResult, bool) {
	v, ok := s.results.Load(id)
	if !ok {
		return model.NodeResult{}, false
	}
	return v.(model.NodeResult), true
}

// Results returns a copy of all published results.
func (s *Store) Results(ctx context.Context) map[string]model.NodeResult {
	out := make(map[string]model.NodeResult, s.count.Load())
	s.results.Range(func(k, v any) bool {
		out[k.(string)] = v.(model.NodeResult)
		return true
	})
	return out
}

// Len returns the number of published results.
func (s *Store) Len(ctx context.Context) int {
	return int(s.count.Load())
}
