package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/gridflow/internal/inmemorystore"
	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/nodestore"
	"github.com/zclconf/go-cty/cty"
)

// ErrNotPending is returned when a run is started twice.
var ErrNotPending = errors.New("run is not pending")

// Options are the per-run execution knobs. Zero values mean "use the
// engine default".
type Options struct {
	NodeTimeout    time.Duration
	MaxConcurrency int
	FailFast       bool
}

// Run is the record of one execution of a graph. The coordinator owns it;
// the scheduler only publishes node results through it.
type Run struct {
	ID      string
	Options Options
	// Inputs holds the initial inputs keyed by node id, then port id.
	Inputs map[string]map[string]cty.Value

	store nodestore.Store

	mu         sync.RWMutex
	status     model.RunStatus
	err        error
	startedAt  time.Time
	finishedAt time.Time
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewRun creates a Pending run backed by an in-memory result store.
func NewRun(id string, inputs map[string]map[string]cty.Value, opts Options) *Run {
	return &Run{
		ID:      id,
		Options: opts,
		Inputs:  inputs,
		store:   inmemorystore.New(),
		status:  model.RunPending,
		done:    make(chan struct{}),
	}
}

// Start moves the run from Pending to Running and records cancel so that
// Cancel can stop it.
func (r *Run) Start(cancel context.CancelFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != model.RunPending {
		return fmt.Errorf("run '%s' is %s: %w", r.ID, r.status, ErrNotPending)
	}
	r.status = model.RunRunning
	r.startedAt = time.Now()
	r.cancel = cancel
	return nil
}

// Finish moves the run to a terminal status. Only the first call has an
// effect; it returns false for later calls.
func (r *Run) Finish(status model.RunStatus, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Terminal() {
		return false
	}
	r.status = status
	r.err = err
	r.finishedAt = time.Now()
	if r.startedAt.IsZero() {
		r.startedAt = r.finishedAt
	}
	close(r.done)
	return true
}

// Cancel requests cooperative cancellation. It reports whether the run was
// still active.
func (r *Run) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Terminal() {
		return false
	}
	if r.cancel != nil {
		r.cancel()
	}
	return true
}

// Done is closed once the run is terminal.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Status returns the current run status.
func (r *Run) Status() model.RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Publish records a node result. Results are write-once and are written
// under the same lock Snapshot reads them with.
func (r *Run) Publish(ctx context.Context, res model.NodeResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Publish(ctx, res)
}

// Result returns the published result of a node.
func (r *Run) Result(ctx context.Context, nodeID string) (model.NodeResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.Result(ctx, nodeID)
}

// Results returns a copy of every published result.
func (r *Run) Results(ctx context.Context) map[string]model.NodeResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.Results(ctx)
}

// Snapshot is a consistent, immutable view of a run.
type Snapshot struct {
	RunID      string
	Status     model.RunStatus
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
	Results    map[string]model.NodeResult
}

// Snapshot copies the run state under the run's lock.
func (r *Run) Snapshot(ctx context.Context) Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Snapshot{
		RunID:      r.ID,
		Status:     r.status,
		Err:        r.err,
		StartedAt:  r.startedAt,
		FinishedAt: r.finishedAt,
		Results:    r.store.Results(ctx),
	}
}
