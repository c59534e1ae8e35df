// Package session defines the run record owned by the coordinator and the
// interfaces for creating the per-run execution session that drives it. It
// abstracts away the details of how a run is executed.
package session

import (
	"context"

	"github.com/specialistvlad/gridflow/internal/model"
)

// SessionFactory creates an execution Session for one run. Different
// implementations can support various backends; internal/localsession runs
// everything in-process.
type SessionFactory interface {
	NewSession(ctx context.Context, g *model.Graph, run *Run) (Session, error)
}

// Session drives a single run to completion.
type Session interface {
	// Execute runs the graph and publishes every node result into the run.
	// The returned error decides the run's final status.
	Execute(ctx context.Context) error
	// Close releases any resources held by the session.
	Close(ctx context.Context) error
}
