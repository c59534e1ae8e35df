package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/graph"
	"github.com/specialistvlad/gridflow/internal/inmemorytopology"
	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/specialistvlad/gridflow/internal/script"
	"github.com/specialistvlad/gridflow/internal/session"
	"github.com/specialistvlad/gridflow/internal/topologystore"
	"github.com/zclconf/go-cty/cty"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "gridflow/scheduler"

// Runner executes one unit of work. *script.Executor implements it.
type Runner interface {
	Execute(ctx context.Context, inv script.Invocation) script.Outcome
}

// Defaults are the engine-wide knobs a run falls back to.
type Defaults struct {
	Workers     int
	NodeTimeout time.Duration
	Limits      script.Limits
}

// Scheduler executes one run of a graph.
type Scheduler struct {
	graph    *model.Graph
	registry *registry.Registry
	runner   Runner
	topology topologystore.Store
	defaults Defaults
	observe  func(context.Context, model.NodeResult)
	tracer   trace.Tracer
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithObserver registers fn to be called after every published node result.
func WithObserver(fn func(context.Context, model.NodeResult)) Option {
	return func(s *Scheduler) { s.observe = fn }
}

// WithTopology replaces the in-memory topology store.
func WithTopology(t topologystore.Store) Option {
	return func(s *Scheduler) { s.topology = t }
}

// New creates a scheduler for one run of g. g must already have its default
// ports filled in (registry.Prepare) and must not change while it executes.
func New(g *model.Graph, reg *registry.Registry, runner Runner, defaults Defaults, opts ...Option) *Scheduler {
	s := &Scheduler{
		graph:    g,
		registry: reg,
		runner:   runner,
		topology: inmemorytopology.New(),
		defaults: defaults,
		observe:  func(context.Context, model.NodeResult) {},
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute drives run to completion and publishes a result for every node.
// It returns nil if no node failed, ErrRunCancelled if ctx was cancelled, a
// *NodeFailureError if nodes failed, a graph validation error, or an
// *InternalError.
func (s *Scheduler) Execute(ctx context.Context, run *session.Run) (err error) {
	logger := ctxlog.FromContext(ctx)

	ctx, span := s.tracer.Start(ctx, "scheduler.Execute", trace.WithAttributes(
		attribute.String("run.id", run.ID),
		attribute.Int("graph.nodes", len(s.graph.Nodes)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if res := graph.Validate(s.graph, s.registry); !res.OK() {
		verr := res.Err()
		logger.Warn("Graph is invalid, nothing will run.", "errors", len(res.Errors))
		for _, n := range s.graph.Nodes {
			if n == nil || n.ID == "" {
				continue
			}
			if _, done := run.Result(ctx, n.ID); done {
				continue
			}
			if err := s.publish(ctx, run, skipped(n.ID, model.ReasonGraphInvalid, verr.Error())); err != nil {
				return err
			}
		}
		return verr
	}

	layers, err := graph.TopologicalLayers(s.graph)
	if err != nil {
		return &InternalError{Err: err}
	}
	if err := topologystore.Load(ctx, s.topology, s.graph); err != nil {
		return &InternalError{Err: err}
	}

	st := &state{failFast: run.Options.FailFast}
	for i, layer := range layers {
		if ctx.Err() != nil {
			s.skipRest(ctx, run, layers[i:], model.ReasonCancelled)
			return ErrRunCancelled
		}
		if st.tripped() {
			s.skipRest(ctx, run, layers[i:], model.ReasonFailFast)
			break
		}
		logger.Debug("Starting layer.", "layer", i, "nodes", len(layer))
		if err := s.runLayer(ctx, run, layer, st); err != nil {
			return err
		}
	}

	if ctx.Err() != nil {
		return ErrRunCancelled
	}
	if failed := st.failedIDs(); len(failed) > 0 {
		return &NodeFailureError{NodeIDs: failed}
	}
	return nil
}

// state is shared by the workers of a run.
type state struct {
	mu       sync.Mutex
	failFast bool
	failed   []string
	trip     bool
}

func (st *state) recordFailure(id string) (tripped bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.failed = append(st.failed, id)
	if st.failFast && !st.trip {
		st.trip = true
		return true
	}
	return false
}

func (st *state) tripped() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.trip
}

func (st *state) failedIDs() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]string, len(st.failed))
	copy(out, st.failed)
	sort.Strings(out)
	return out
}

func (s *Scheduler) runLayer(ctx context.Context, run *session.Run, layer []string, st *state) error {
	layerCtx, cancelLayer := context.WithCancel(ctx)
	defer cancelLayer()

	var g errgroup.Group
	g.SetLimit(s.workers(run))
	abort := func(err error) error {
		cancelLayer()
		_ = g.Wait()
		return err
	}

	for _, id := range layer {
		n, ok := s.topology.Node(ctx, id)
		if !ok {
			return abort(&InternalError{Err: fmt.Errorf("node '%s' missing from topology", id)})
		}

		d, err := s.decide(ctx, run, n)
		if err != nil {
			return abort(&InternalError{Err: err})
		}
		if !d.runnable {
			if err := s.publish(ctx, run, d.skip); err != nil {
				return abort(err)
			}
			continue
		}

		g.Go(func() error {
			if layerCtx.Err() != nil {
				reason := model.ReasonFailFast
				if ctx.Err() != nil {
					reason = model.ReasonCancelled
				}
				return s.publish(ctx, run, skipped(n.ID, reason, ""))
			}

			res := s.runNode(layerCtx, run, n, d.inputs)
			if res.Status == model.NodeFailed && st.recordFailure(n.ID) {
				ctxlog.FromContext(ctx).Warn("Node failed, stopping run.", "node_id", n.ID)
				cancelLayer()
			}
			return s.publish(ctx, run, res)
		})
	}

	return g.Wait()
}

func (s *Scheduler) runNode(ctx context.Context, run *session.Run, n *model.Node, inputs map[string]cty.Value) model.NodeResult {
	ctx = ctxlog.WithNode(ctx, n.ID)
	logger := ctxlog.FromContext(ctx)

	ctx, span := s.tracer.Start(ctx, "scheduler.node", trace.WithAttributes(
		attribute.String("node.id", n.ID),
		attribute.String("node.kind", n.Kind),
	))
	defer span.End()

	res := s.execute(ctx, run, n, inputs)

	span.SetAttributes(attribute.String("node.status", string(res.Status)))
	if res.Status == model.NodeFailed {
		span.SetStatus(codes.Error, res.Error)
		logger.Info("Node failed.", "reason", res.Reason, "error", res.Error, "duration", res.Duration)
	} else {
		logger.Info("Node succeeded.", "duration", res.Duration, "branch", res.Branch)
	}
	return res
}

func (s *Scheduler) execute(ctx context.Context, run *session.Run, n *model.Node, inputs map[string]cty.Value) model.NodeResult {
	kind, ok := s.registry.Kind(n.Kind)
	if !ok {
		return failed(n.ID, model.ReasonInternal, fmt.Sprintf("unknown kind %q", n.Kind))
	}

	if seeder, ok := kind.(registry.Seeder); ok {
		start := time.Now()
		outputs, err := seeder.Seed(n, run.Inputs[n.ID])
		if err != nil {
			res := failed(n.ID, model.ReasonInvalidInput, err.Error())
			res.Duration = time.Since(start)
			return res
		}
		return model.NodeResult{NodeID: n.ID, Status: model.NodeSucceeded, Outputs: outputs, Duration: time.Since(start)}
	}

	unit, err := kind.Unit(n, inputs)
	if err != nil {
		return failed(n.ID, model.ReasonInvalidInput, err.Error())
	}

	limits := s.defaults.Limits
	limits.Timeout = s.defaults.NodeTimeout
	if run.Options.NodeTimeout > 0 {
		limits.Timeout = run.Options.NodeTimeout
	}
	if t, ok := kind.(registry.Timeouter); ok {
		if d := t.Timeout(n); d > 0 {
			limits.Timeout = d
		}
	}

	out := s.runner.Execute(ctx, script.Invocation{
		NodeID:  n.ID,
		Unit:    unit,
		Inputs:  inputs,
		Outputs: n.Outputs,
		Limits:  limits,
	})

	res := model.NodeResult{
		NodeID:    n.ID,
		Outputs:   out.Outputs,
		Stdout:    out.Stdout,
		Stderr:    out.Stderr,
		ExitCode:  out.ExitCode,
		Duration:  out.Duration,
		Truncated: out.Truncated,
	}
	if !out.OK() {
		res.Status = model.NodeFailed
		res.Outputs = nil
		res.Reason = script.ReasonFor(out.Err)
		res.Error = out.Err.Error()
		return res
	}
	res.Status = model.NodeSucceeded
	if n.Kind == model.KindCondition {
		res.Branch = firedBranch(res.Outputs)
	}
	return res
}

func (s *Scheduler) publish(ctx context.Context, run *session.Run, res model.NodeResult) error {
	if err := run.Publish(ctx, res); err != nil {
		return &InternalError{Err: err}
	}
	s.observe(ctx, res)
	return nil
}

func (s *Scheduler) skipRest(ctx context.Context, run *session.Run, layers [][]string, reason model.Reason) {
	for _, layer := range layers {
		for _, id := range layer {
			if _, done := run.Result(ctx, id); done {
				continue
			}
			_ = s.publish(ctx, run, skipped(id, reason, ""))
		}
	}
}

func (s *Scheduler) workers(run *session.Run) int {
	switch {
	case run.Options.MaxConcurrency > 0:
		return run.Options.MaxConcurrency
	case s.defaults.Workers > 0:
		return s.defaults.Workers
	default:
		return runtime.GOMAXPROCS(0)
	}
}

func firedBranch(outputs map[string]cty.Value) string {
	for _, port := range []string{model.PortTrue, model.PortFalse} {
		if _, ok := outputs[port]; ok {
			return port
		}
	}
	return ""
}

func skipped(id string, reason model.Reason, msg string) model.NodeResult {
	return model.NodeResult{NodeID: id, Status: model.NodeSkipped, Reason: reason, Error: msg}
}

func failed(id string, reason model.Reason, msg string) model.NodeResult {
	return model.NodeResult{NodeID: id, Status: model.NodeFailed, Reason: reason, Error: msg}
}

// IsCancelled reports whether err is the scheduler's cancellation error.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrRunCancelled)
}
