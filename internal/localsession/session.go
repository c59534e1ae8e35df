// Package localsession provides a concrete implementation of the session.Session
// and session.SessionFactory interfaces for local, in-process execution.
package localsession

import (
	"context"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/inmemorytopology"
	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/specialistvlad/gridflow/internal/scheduler"
	"github.com/specialistvlad/gridflow/internal/session"
)

// SessionFactory implements session.SessionFactory for local runs.
type SessionFactory struct {
	Registry *registry.Registry
	Runner   scheduler.Runner
	Defaults scheduler.Defaults
	// Observer, if set, is called after every published node result.
	Observer func(ctx context.Context, runID string, res model.NodeResult)
}

// NewSession wires a fresh topology store and scheduler for one run.
func (f *SessionFactory) NewSession(ctx context.Context, g *model.Graph, run *session.Run) (session.Session, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Creating local session.", "run_id", run.ID)

	opts := []scheduler.Option{scheduler.WithTopology(inmemorytopology.New())}
	if f.Observer != nil {
		observe := f.Observer
		opts = append(opts, scheduler.WithObserver(func(ctx context.Context, res model.NodeResult) {
			observe(ctx, run.ID, res)
		}))
	}

	return &Session{
		run:   run,
		sched: scheduler.New(g, f.Registry, f.Runner, f.Defaults, opts...),
	}, nil
}

// Session implements session.Session for local runs.
type Session struct {
	run   *session.Run
	sched *scheduler.Scheduler
}

// Execute runs the scheduler against the session's run.
func (s *Session) Execute(ctx context.Context) error {
	return s.sched.Execute(ctx, s.run)
}

// Close uses the provided context for logging during cleanup.
func (s *Session) Close(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Local session closed.", "run_id", s.run.ID)
	return nil
}
