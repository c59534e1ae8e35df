package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/specialistvlad/gridflow/internal/archive"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/events"
	"github.com/specialistvlad/gridflow/internal/graph"
	"github.com/specialistvlad/gridflow/internal/localsession"
	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/specialistvlad/gridflow/internal/scheduler"
	"github.com/specialistvlad/gridflow/internal/session"
)

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrRunActive    = errors.New("run is still active")
	ErrGraphFrozen  = errors.New("graph is frozen after the first run")
	ErrNodeNotFound = errors.New("node not found")
)

// Option configures an Engine.
type Option func(*Engine)

// WithDefaults sets the engine-wide execution defaults.
func WithDefaults(d scheduler.Defaults) Option {
	return func(e *Engine) { e.defaults = d }
}

// WithArchive archives every terminal run.
func WithArchive(a archive.Archiver) Option {
	return func(e *Engine) { e.archive = a }
}

// WithBus publishes run events on b instead of a private bus.
func WithBus(b *events.Bus) Option {
	return func(e *Engine) { e.bus = b }
}

// WithIDGenerator replaces the uuid run id generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// WithSessionFactory replaces the local session factory.
func WithSessionFactory(f session.SessionFactory) Option {
	return func(e *Engine) { e.factory = f }
}

// Engine coordinates the runs of one graph. It is safe for concurrent use.
type Engine struct {
	registry *registry.Registry
	defaults scheduler.Defaults
	factory  session.SessionFactory
	bus      *events.Bus
	archive  archive.Archiver
	newID    func() string

	mu     sync.RWMutex
	graph  *model.Graph
	frozen bool
	runs   map[string]*entry
	wg     sync.WaitGroup
}

// entry tracks a run together with the engine's own completion signal,
// which fires after archiving and the RunFinished event.
type entry struct {
	run  *session.Run
	done chan struct{}
}

// New creates an Engine for a private copy of g.
func New(g *model.Graph, reg *registry.Registry, runner scheduler.Runner, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		newID:    uuid.NewString,
		graph:    g.Clone(),
		runs:     make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.bus == nil {
		e.bus = events.NewBus()
	}
	if e.factory == nil {
		e.factory = &localsession.SessionFactory{
			Registry: reg,
			Runner:   runner,
			Defaults: e.defaults,
			Observer: e.nodeCompleted,
		}
	}
	reg.Prepare(e.graph)
	return e
}

// Graph returns a copy of the engine's graph with default ports filled in.
func (e *Engine) Graph() *model.Graph {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph.Clone()
}

// Validate checks the graph without running it.
func (e *Engine) Validate() graph.ValidationResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return graph.Validate(e.graph, e.registry)
}

// UpdateNodeConfig replaces the config of a node. It fails with
// ErrGraphFrozen once a run has started.
func (e *Engine) UpdateNodeConfig(nodeID string, cfg map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.frozen {
		return ErrGraphFrozen
	}
	n := e.graph.Node(nodeID)
	if n == nil {
		return fmt.Errorf("node '%s': %w", nodeID, ErrNodeNotFound)
	}
	n.Config = cfg
	e.registry.Prepare(e.graph)
	return nil
}

// Start creates a run and executes it in the background. inputs maps
// `node.port` or bare `node` keys to plain Go values.
func (e *Engine) Start(ctx context.Context, inputs map[string]any, opts session.Options) (string, error) {
	logger := ctxlog.FromContext(ctx)

	e.mu.Lock()
	seeded, err := e.resolveInputs(inputs)
	if err != nil {
		e.mu.Unlock()
		return "", err
	}
	id := e.newID()
	if _, exists := e.runs[id]; exists {
		e.mu.Unlock()
		return "", fmt.Errorf("run id '%s' already in use", id)
	}
	run := session.NewRun(id, seeded, opts)
	ent := &entry{run: run, done: make(chan struct{})}
	e.runs[id] = ent
	e.frozen = true
	g := e.graph
	e.mu.Unlock()

	ctx = ctxlog.WithRun(ctx, id)
	sess, err := e.factory.NewSession(ctx, g, run)
	if err != nil {
		run.Finish(model.RunFailed, err)
		close(ent.done)
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	// The run outlives the caller's request; only Cancel stops it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := run.Start(cancel); err != nil {
		cancel()
		run.Finish(model.RunFailed, err)
		close(ent.done)
		return "", err
	}

	logger.Info("Run started.", "run_id", id, "nodes", len(g.Nodes))
	e.publish(ctx, events.Event{Type: events.RunStarted, RunID: id, Status: model.RunRunning})

	e.wg.Add(1)
	go e.drive(runCtx, cancel, ent, sess)
	return id, nil
}

func (e *Engine) drive(ctx context.Context, cancel context.CancelFunc, ent *entry, sess session.Session) {
	defer e.wg.Done()
	defer close(ent.done)
	defer cancel()
	logger := ctxlog.FromContext(ctx)
	run := ent.run

	err := sess.Execute(ctx)
	status := statusFor(err)
	run.Finish(status, err)
	if cerr := sess.Close(ctx); cerr != nil {
		logger.Warn("Failed to close session.", "error", cerr)
	}

	var internal *scheduler.InternalError
	switch {
	case errors.As(err, &internal):
		logger.Error("Run aborted by an internal error.", "error", err)
	case err != nil:
		logger.Info("Run finished.", "status", status, "error", err)
	default:
		logger.Info("Run finished.", "status", status)
	}

	if e.archive != nil {
		if aerr := e.archiveRun(ctx, run); aerr != nil {
			logger.Error("Failed to archive run.", "error", aerr)
		}
	}

	finished := events.Event{Type: events.RunFinished, RunID: run.ID, Status: status}
	if err != nil {
		finished.Error = err.Error()
	}
	e.publish(ctx, finished)
}

func statusFor(err error) model.RunStatus {
	switch {
	case err == nil:
		return model.RunSucceeded
	case scheduler.IsCancelled(err):
		return model.RunCancelled
	default:
		return model.RunFailed
	}
}

func (e *Engine) nodeCompleted(ctx context.Context, runID string, res model.NodeResult) {
	e.publish(ctx, events.Event{Type: events.NodeCompleted, RunID: runID, Result: &res})
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if err := e.bus.Publish(ctx, ev); err != nil {
		ctxlog.FromContext(ctx).Debug("Event not published.", "event_type", ev.Type, "error", err)
	}
}

func (e *Engine) lookup(runID string) (*entry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ent, ok := e.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run '%s': %w", runID, ErrRunNotFound)
	}
	return ent, nil
}

// Cancel requests cooperative cancellation of a run. Cancelling a run that
// has already finished has no effect.
func (e *Engine) Cancel(ctx context.Context, runID string) error {
	ent, err := e.lookup(runID)
	if err != nil {
		return err
	}
	if ent.run.Cancel() {
		ctxlog.FromContext(ctx).Info("Run cancellation requested.", "run_id", runID)
	}
	return nil
}

// Status returns a consistent snapshot of a run.
func (e *Engine) Status(ctx context.Context, runID string) (session.Snapshot, error) {
	ent, err := e.lookup(runID)
	if err != nil {
		return session.Snapshot{}, err
	}
	return ent.run.Snapshot(ctx), nil
}

// Result returns the node results published so far.
func (e *Engine) Result(ctx context.Context, runID string) (map[string]model.NodeResult, error) {
	ent, err := e.lookup(runID)
	if err != nil {
		return nil, err
	}
	return ent.run.Results(ctx), nil
}

// Wait blocks until the run is terminal, archived and announced, or until
// ctx is done.
func (e *Engine) Wait(ctx context.Context, runID string) (session.Snapshot, error) {
	ent, err := e.lookup(runID)
	if err != nil {
		return session.Snapshot{}, err
	}
	select {
	case <-ent.done:
		return ent.run.Snapshot(ctx), nil
	case <-ctx.Done():
		return session.Snapshot{}, ctx.Err()
	}
}

// Subscribe streams run events matching filter until ctx is done or the
// returned function is called.
func (e *Engine) Subscribe(ctx context.Context, filter events.Filter) (<-chan events.Event, func()) {
	return e.bus.Subscribe(ctx, filter, 0)
}

// Runs returns the ids of the runs the engine still holds, sorted.
func (e *Engine) Runs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.runs))
	for id := range e.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Forget drops a finished run from memory. An archived copy stays
// available through Report.
func (e *Engine) Forget(runID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.runs[runID]
	if !ok {
		return fmt.Errorf("run '%s': %w", runID, ErrRunNotFound)
	}
	select {
	case <-ent.done:
	default:
		return fmt.Errorf("run '%s': %w", runID, ErrRunActive)
	}
	delete(e.runs, runID)
	return nil
}

// Close cancels every active run, waits for them to finish and closes the
// event bus and the archive.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.RLock()
	for _, ent := range e.runs {
		ent.run.Cancel()
	}
	e.mu.RUnlock()

	waited := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		return fmt.Errorf("waiting for runs to stop: %w", ctx.Err())
	}

	errs := []error{e.bus.Close()}
	if e.archive != nil {
		errs = append(errs, e.archive.Close())
	}
	return errors.Join(errs...)
}
