package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/session"
	"github.com/zclconf/go-cty/cty"
)

type edgeState int

const (
	edgeDelivered edgeState = iota
	edgePoisoned
	edgeNotFired
)

// decision is the verdict for one node of a layer.
type decision struct {
	runnable bool
	inputs   map[string]cty.Value
	skip     model.NodeResult
}

// decide classifies every incoming edge of n against the results published
// by earlier layers.
func (s *Scheduler) decide(ctx context.Context, run *session.Run, n *model.Node) (decision, error) {
	edges, err := s.topology.Incoming(ctx, n.ID)
	if err != nil {
		return decision{}, err
	}

	inputs := make(map[string]cty.Value, len(edges))
	var poisoned, notFired []string
	for _, e := range edges {
		src, ok := run.Result(ctx, e.SourceNode)
		if !ok {
			return decision{}, fmt.Errorf("node '%s' has no result before its dependent '%s'", e.SourceNode, n.ID)
		}

		switch state, v := classify(src, e.SourcePort); state {
		case edgeDelivered:
			inputs[e.DestPort] = v
		case edgePoisoned:
			poisoned = append(poisoned, e.SourceNode)
		case edgeNotFired:
			if p, ok := n.Input(e.DestPort); ok && p.Optional {
				continue
			}
			notFired = append(notFired, e.SourceNode+"."+e.SourcePort)
		}
	}

	switch {
	case len(poisoned) > 0:
		return decision{skip: skipped(n.ID, model.ReasonUpstreamFailed,
			"upstream failed: "+strings.Join(poisoned, ", "))}, nil
	case len(notFired) > 0:
		return decision{skip: skipped(n.ID, model.ReasonBranchNotTaken,
			"no value from: "+strings.Join(notFired, ", "))}, nil
	case len(edges) > 0 && len(inputs) == 0:
		// Only optional ports are wired and none of them received a value.
		return decision{skip: skipped(n.ID, model.ReasonBranchNotTaken,
			"no incoming edge delivered a value")}, nil
	}
	return decision{runnable: true, inputs: inputs}, nil
}

func classify(src model.NodeResult, port string) (edgeState, cty.Value) {
	switch src.Status {
	case model.NodeFailed:
		return edgePoisoned, cty.NilVal
	case model.NodeSkipped:
		if src.Reason == model.ReasonUpstreamFailed {
			return edgePoisoned, cty.NilVal
		}
		return edgeNotFired, cty.NilVal
	case model.NodeSucceeded:
		if v, ok := src.Outputs[port]; ok && v != cty.NilVal {
			return edgeDelivered, v
		}
	}
	return edgeNotFired, cty.NilVal
}
