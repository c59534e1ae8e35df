package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/specialistvlad/gridflow/internal/ctyval"
	"github.com/specialistvlad/gridflow/internal/nodeid"
	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// ErrInvalidInput is wrapped by every initial input resolution error.
var ErrInvalidInput = errors.New("invalid initial input")

// resolveInputs turns request keys into per-node, per-port values. A bare
// node id assigns the value to every output port of that node; a
// `node.port` key wins over a bare key for the same port. The caller must
// hold e.mu.
func (e *Engine) resolveInputs(raw map[string]any) (map[string]map[string]cty.Value, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	// A bare "n" sorts before "n.port", so specific keys are applied last.
	sort.Strings(keys)

	hasNode := func(id string) bool { return e.graph.Node(id) != nil }
	out := make(map[string]map[string]cty.Value)
	var errs []error
	for _, key := range keys {
		ref, err := nodeid.Resolve(key, hasNode)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		n := e.graph.Node(ref.Node)
		kind, ok := e.registry.Kind(n.Kind)
		if !ok {
			errs = append(errs, fmt.Errorf("%q: unknown kind %q", key, n.Kind))
			continue
		}
		if _, ok := kind.(registry.Seeder); !ok {
			errs = append(errs, fmt.Errorf("%q: %s node '%s' does not take initial inputs", key, n.Kind, n.ID))
			continue
		}

		ports := []string{ref.Port}
		if ref.WholeNode() {
			ports = ports[:0]
			for _, p := range n.Outputs {
				ports = append(ports, p.ID)
			}
		} else if _, ok := n.Output(ref.Port); !ok {
			errs = append(errs, fmt.Errorf("%q: node '%s' has no output port '%s'", key, n.ID, ref.Port))
			continue
		}

		v, err := ctyval.FromGo(raw[key])
		if err != nil {
			errs = append(errs, fmt.Errorf("%q: %w", key, err))
			continue
		}
		if out[n.ID] == nil {
			out[n.ID] = make(map[string]cty.Value, len(ports))
		}
		for _, p := range ports {
			out[n.ID][p] = v
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return out, nil
}
