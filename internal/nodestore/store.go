// Package nodestore defines the interface for recording the results of nodes
// during a single run.
//
// # Why Node Store Exists
//
// The node store isolates **mutable execution state** (one model.NodeResult
// per node) from the **immutable graph structure** managed by topologystore.
// The scheduler reads structure from the topology and writes outcomes here;
// the coordinator reads outcomes from here to build snapshots.
//
// # Lifecycle and Usage
//
// The node store is:
//  1. **Created** once per run (ephemeral, not shared between runs)
//  2. **Written** by the scheduler as each node reaches a terminal status
//  3. **Read** by the scheduler when deciding whether a downstream edge was
//     delivered, and by the coordinator for Status/Result snapshots
//  4. **Archived** (optionally) and discarded when the run is forgotten
//
// # Write-Once Semantics
//
// A node's result is terminal. Publishing a second result for the same node
// id fails with ErrAlreadyPublished and leaves the first result untouched.
// This is what makes concurrent publishing from a layer's worker pool safe
// without further coordination: every node id has exactly one writer.
package nodestore

import (
	"context"
	"errors"

	"github.com/specialistvlad/gridflow/internal/model"
)

// ErrAlreadyPublished is returned when a node's result is published twice.
var ErrAlreadyPublished = errors.New("node result already published")

// Store records node results for one run.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent Publish calls for different
// nodes and for reads concurrent with writes.
//
// See internal/inmemorystore for the in-memory implementation.
type Store interface {
	// Publish records the terminal result of a node.
	//
	// Returns ErrAlreadyPublished (wrapped) if a result for res.NodeID exists.
	Publish(ctx context.Context, res model.NodeResult) error

	// Result returns the published result of a node and true, or the zero
	// result and false if nothing has been published for id yet.
	Result(ctx context.Context, id string) (model.NodeResult, bool)

	// Results returns a snapshot copy of every published result keyed by node
	// id. The caller owns the returned map.
	Results(ctx context.Context) map[string]model.NodeResult

	// Len returns the number of published results.
	Len(ctx context.Context) int
}
