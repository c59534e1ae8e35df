package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/script"
	"github.com/zclconf/go-cty/cty"
)

// Kind is a node type.
type Kind interface {
	// Name is the kind name used in graph documents.
	Name() string
	// Ports returns the ports a node gets when its document declares none.
	Ports(n *model.Node) (inputs, outputs []model.Port)
	// Check validates the node's config and ports before any run.
	Check(n *model.Node) error
	// Unit builds the executable unit for one invocation of n.
	Unit(n *model.Node, inputs map[string]cty.Value) (script.Unit, error)
}

// Seeder is implemented by kinds whose nodes take their values from the run's
// initial inputs instead of executing a unit.
type Seeder interface {
	Seed(n *model.Node, supplied map[string]cty.Value) (map[string]cty.Value, error)
}

// Timeouter is implemented by kinds whose nodes may override the run's
// per-node timeout.
type Timeouter interface {
	Timeout(n *model.Node) time.Duration
}

// Module is the interface that all kind modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds all the registered kinds for a single application instance.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Kind
}

// New creates a Registry and registers the given modules.
func New(modules ...Module) *Registry {
	r := &Registry{kinds: make(map[string]Kind)}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// Register adds a kind. Registering the same name twice is a programming
// error and panics.
func (r *Registry) Register(k Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[k.Name()]; exists {
		panic(fmt.Sprintf("kind '%s' already registered", k.Name()))
	}
	slog.Debug("Registering kind.", "kind", k.Name())
	r.kinds[k.Name()] = k
}

// Kind returns the kind registered under name.
func (r *Registry) Kind(name string) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	return k, ok
}

// Names returns the registered kind names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckNode implements graph.KindChecker.
func (r *Registry) CheckNode(n *model.Node) error {
	k, ok := r.Kind(n.Kind)
	if !ok {
		return fmt.Errorf("unknown kind %q (registered: %v)", n.Kind, r.Names())
	}
	return k.Check(n)
}

// Prepare fills in the default ports of every node that declares none. It
// mutates g and is meant to run on the engine's private copy.
func (r *Registry) Prepare(g *model.Graph) {
	for _, n := range g.Nodes {
		if n == nil {
			continue
		}
		k, ok := r.Kind(n.Kind)
		if !ok {
			continue
		}
		inputs, outputs := k.Ports(n)
		if len(n.Inputs) == 0 && len(inputs) > 0 {
			n.Inputs = inputs
		}
		if len(n.Outputs) == 0 && len(outputs) > 0 {
			n.Outputs = outputs
		}
	}
}
