package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/specialistvlad/gridflow/internal/archive"
	"github.com/specialistvlad/gridflow/internal/ctyval"
	"github.com/specialistvlad/gridflow/internal/graphdoc"
	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/session"
)

// Request is an execution request as it arrives from outside the engine.
type Request struct {
	// Graph is optional for engines that already own a graph.
	Graph            *graphdoc.Document `json:"graph,omitempty"`
	InitialInputs    map[string]any     `json:"initialInputs,omitempty"`
	TimeoutPerNodeMs int64              `json:"timeoutPerNodeMs,omitempty" validate:"gte=0"`
	MaxConcurrency   int                `json:"maxConcurrency,omitempty" validate:"gte=0"`
	FailFast         bool               `json:"failFast,omitempty"`
}

var validate = validator.New()

// DecodeRequest parses and checks a JSON request.
func DecodeRequest(raw []byte) (*Request, error) {
	var req Request
	if err := sonic.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return &req, nil
}

// Options converts the request knobs into run options.
func (r *Request) Options() session.Options {
	return session.Options{
		NodeTimeout:    time.Duration(r.TimeoutPerNodeMs) * time.Millisecond,
		MaxConcurrency: r.MaxConcurrency,
		FailFast:       r.FailFast,
	}
}

// StartRequest starts a run from a request. A request that carries a graph
// must describe the engine's own graph, otherwise it fails with
// ErrInvalidInput and no run is created.
func (e *Engine) StartRequest(ctx context.Context, req *Request) (string, error) {
	if req.Graph != nil {
		if err := e.matchGraph(req.Graph); err != nil {
			return "", err
		}
	}
	return e.Start(ctx, req.InitialInputs, req.Options())
}

func (e *Engine) matchGraph(doc *graphdoc.Document) error {
	g, err := doc.Graph()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	e.registry.Prepare(g)
	want, err := canonicalGraph(g)
	if err != nil {
		return err
	}

	e.mu.RLock()
	have, err := canonicalGraph(e.graph)
	e.mu.RUnlock()
	if err != nil {
		return err
	}
	if !bytes.Equal(want, have) {
		return fmt.Errorf("%w: request graph differs from the engine's graph", ErrInvalidInput)
	}
	return nil
}

// canonicalGraph renders g with nodes and edges sorted by id, so documents
// that list the same graph in a different order compare equal.
func canonicalGraph(g *model.Graph) ([]byte, error) {
	c := g.Clone()
	sort.Slice(c.Nodes, func(i, j int) bool { return c.Nodes[i].ID < c.Nodes[j].ID })
	sort.Slice(c.Edges, func(i, j int) bool { return c.Edges[i].ID < c.Edges[j].ID })
	out, err := graphdoc.EncodeJSON(graphdoc.FromGraph(c))
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}
	return out, nil
}

// Result is the externally visible form of a run.
type Result struct {
	RunID       string                `json:"runId"`
	Status      model.RunStatus       `json:"status"`
	Error       string                `json:"error,omitempty"`
	StartedAt   time.Time             `json:"startedAt"`
	FinishedAt  *time.Time            `json:"finishedAt,omitempty"`
	NodeResults map[string]NodeReport `json:"nodeResults"`
}

// NodeReport is the externally visible form of a NodeResult.
type NodeReport struct {
	Status     model.NodeStatus `json:"status"`
	Outputs    map[string]any   `json:"outputs,omitempty"`
	Stdout     string           `json:"stdout,omitempty"`
	Stderr     string           `json:"stderr,omitempty"`
	Diagnostic string           `json:"diagnostic,omitempty"`
	ExitCode   int              `json:"exitCode"`
	DurationMs int64            `json:"durationMs"`
	Reason     model.Reason     `json:"reason,omitempty"`
	Error      string           `json:"error,omitempty"`
	Truncated  bool             `json:"truncated,omitempty"`
	Branch     string           `json:"branch,omitempty"`
}

// NewResult converts a snapshot into a Result.
func NewResult(s session.Snapshot) (*Result, error) {
	r := &Result{
		RunID:       s.RunID,
		Status:      s.Status,
		StartedAt:   s.StartedAt,
		NodeResults: make(map[string]NodeReport, len(s.Results)),
	}
	if s.Err != nil {
		r.Error = s.Err.Error()
	}
	if !s.FinishedAt.IsZero() {
		t := s.FinishedAt
		r.FinishedAt = &t
	}
	for id, res := range s.Results {
		report, err := NewNodeReport(res)
		if err != nil {
			return nil, fmt.Errorf("node '%s': %w", id, err)
		}
		r.NodeResults[id] = report
	}
	return r, nil
}

// NewNodeReport converts one node result into its external form.
func NewNodeReport(res model.NodeResult) (NodeReport, error) {
	report := NodeReport{
		Status:     res.Status,
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
		ExitCode:   res.ExitCode,
		DurationMs: res.Duration.Milliseconds(),
		Reason:     res.Reason,
		Error:      res.Error,
		Truncated:  res.Truncated,
		Branch:     res.Branch,
	}
	if res.Status == model.NodeFailed {
		report.Diagnostic = res.Diagnostic()
	}
	if len(res.Outputs) > 0 {
		report.Outputs = make(map[string]any, len(res.Outputs))
		for port, v := range res.Outputs {
			gv, err := ctyval.ToGo(v)
			if err != nil {
				return NodeReport{}, fmt.Errorf("output '%s': %w", port, err)
			}
			report.Outputs[port] = gv
		}
	}
	return report, nil
}

// Counts returns how many nodes ended in each status.
func (r *Result) Counts() map[model.NodeStatus]int {
	out := make(map[model.NodeStatus]int, 3)
	for _, n := range r.NodeResults {
		out[n.Status]++
	}
	return out
}

// NodeIDs returns the node ids of the result, sorted.
func (r *Result) NodeIDs() []string {
	ids := make([]string, 0, len(r.NodeResults))
	for id := range r.NodeResults {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EncodeResult renders r as JSON.
func EncodeResult(r *Result) ([]byte, error) {
	return sonic.Marshal(r)
}

// DecodeResult parses a JSON result.
func DecodeResult(raw []byte) (*Result, error) {
	var r Result
	if err := sonic.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &r, nil
}

func (e *Engine) archiveRun(ctx context.Context, run *session.Run) error {
	res, err := NewResult(run.Snapshot(ctx))
	if err != nil {
		return err
	}
	raw, err := EncodeResult(res)
	if err != nil {
		return err
	}
	return e.archive.Save(ctx, run.ID, raw)
}

// Report returns the Result of a run, from memory or, for forgotten runs,
// from the archive.
func (e *Engine) Report(ctx context.Context, runID string) (*Result, error) {
	snap, err := e.Status(ctx, runID)
	if err == nil {
		return NewResult(snap)
	}
	if !errors.Is(err, ErrRunNotFound) || e.archive == nil {
		return nil, err
	}
	raw, aerr := e.archive.Load(ctx, runID)
	if errors.Is(aerr, archive.ErrNotFound) {
		return nil, err
	}
	if aerr != nil {
		return nil, aerr
	}
	return DecodeResult(raw)
}
