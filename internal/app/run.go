package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/engine"
	"github.com/specialistvlad/gridflow/internal/graph"
	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/session"
)

// ErrRunFailed is returned by Run when the run ends in any status other
// than succeeded. The run error is joined to it.
var ErrRunFailed = errors.New("run did not succeed")

// Run executes the graph once, prints the summary and returns the result.
// Cancelling ctx cancels the run; Run still waits for it to wind down.
func (a *App) Run(ctx context.Context, inputs map[string]any, opts session.Options) (*engine.Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.Engine.HealthcheckPort > 0 {
		if err := a.startHealthServer(); err != nil {
			return nil, err
		}
		defer a.stopHealthServer()
	}

	opts.FailFast = opts.FailFast || a.config.Engine.FailFast
	id, err := a.engine.Start(ctx, inputs, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	a.logger.Info("🚀 Run started.", "run_id", id)

	snap, err := a.engine.Wait(ctx, id)
	if err != nil {
		a.logger.Warn("Interrupted, cancelling run.", "run_id", id)
		if cerr := a.engine.Cancel(context.WithoutCancel(ctx), id); cerr != nil {
			return nil, cerr
		}
		snap, err = a.engine.Wait(context.WithoutCancel(ctx), id)
		if err != nil {
			return nil, err
		}
	}

	res, err := engine.NewResult(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to build run result: %w", err)
	}
	PrintSummary(a.outW, a.engine.Graph(), res, a.config.NoColor)
	a.logger.Info("🏁 Run finished.", "run_id", id, "status", res.Status)

	if res.Status != model.RunSucceeded {
		return res, errors.Join(ErrRunFailed, snap.Err)
	}
	return res, nil
}

// Validate checks the graph without running anything. It prints one line
// per problem and returns the joined errors.
func (a *App) Validate() error {
	res := a.engine.Validate()
	if res.OK() {
		g := a.engine.Graph()
		fmt.Fprintf(a.outW, "Graph is valid: %d nodes, %d edges.\n", len(g.Nodes), len(g.Edges))
		return nil
	}
	fmt.Fprintf(a.outW, "Graph is invalid (%d problems):\n", len(res.Errors))
	for _, err := range res.Errors {
		fmt.Fprintf(a.outW, "  - %v\n", err)
	}
	return fmt.Errorf("%w: %d problems", graph.ErrInvalidGraph, len(res.Errors))
}
