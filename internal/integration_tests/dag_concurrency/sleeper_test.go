package integration_tests

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/specialistvlad/gridflow/internal/script"
	"github.com/specialistvlad/gridflow/modules/input"
	"github.com/specialistvlad/gridflow/modules/output"
	"github.com/zclconf/go-cty/cty"
)

// span is the wall-clock interval one sleeper node ran in.
type span struct {
	start, end time.Time
}

// tracker records sleeper executions across one test.
type tracker struct {
	mu     sync.Mutex
	spans  map[string]span
	active int
	peak   int
}

func newTracker() *tracker {
	return &tracker{spans: make(map[string]span)}
}

func (t *tracker) begin(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans[id] = span{start: time.Now()}
	t.active++
	if t.active > t.peak {
		t.peak = t.active
	}
}

func (t *tracker) finish(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.spans[id]
	s.end = time.Now()
	t.spans[id] = s
	t.active--
}

func (t *tracker) span(id string) span {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spans[id]
}

func (t *tracker) Peak() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peak
}

type sleeperConfig struct {
	Duration time.Duration `mapstructure:"duration"`
}

// sleeperKind waits for its configured duration and then publishes its own
// id on every output port.
type sleeperKind struct {
	tracker *tracker
}

func (k *sleeperKind) Name() string { return "sleeper" }

func (k *sleeperKind) Ports(*model.Node) ([]model.Port, []model.Port) {
	return nil, []model.Port{{ID: "value", Type: model.TypeText}}
}

func (k *sleeperKind) Check(n *model.Node) error {
	var cfg sleeperConfig
	return registry.DecodeConfig(n.Config, &cfg)
}

func (k *sleeperKind) Unit(n *model.Node, _ map[string]cty.Value) (script.Unit, error) {
	var cfg sleeperConfig
	if err := registry.DecodeConfig(n.Config, &cfg); err != nil {
		return nil, err
	}
	return script.Func(func(ctx context.Context, _ map[string]cty.Value) (map[string]cty.Value, error) {
		k.tracker.begin(n.ID)
		defer k.tracker.finish(n.ID)
		select {
		case <-time.After(cfg.Duration):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		out := make(map[string]cty.Value, len(n.Outputs))
		for _, p := range n.Outputs {
			out[p.ID] = cty.StringVal(n.ID)
		}
		return out, nil
	}), nil
}

type sleeperModule struct {
	tracker *tracker
}

func (m *sleeperModule) Register(r *registry.Registry) {
	r.Register(&sleeperKind{tracker: m.tracker})
}

func modules(t *tracker) []registry.Module {
	return []registry.Module{&input.Module{}, &output.Module{}, &sleeperModule{tracker: t}}
}
