package script

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/ctyval"
	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/zclconf/go-cty/cty"
)

// Environment variables every Command receives.
const (
	EnvInput  = "GRIDFLOW_INPUT"
	EnvOutput = "GRIDFLOW_OUTPUT"
	EnvNodeID = "GRIDFLOW_NODE_ID"
	// EnvInputPrefix prefixes one variable per input port holding the value
	// as text, e.g. GRIDFLOW_IN_VALUE.
	EnvInputPrefix = "GRIDFLOW_IN_"
)

const defaultPath = "/usr/local/bin:/usr/bin:/bin"

// Executor runs units. It is stateless apart from its configuration and is
// safe for concurrent use.
type Executor struct {
	policy  *Policy
	tempDir string
	path    string
	// waitDelay bounds how long Wait keeps reading pipes after the process
	// group has been killed.
	waitDelay time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithPolicy replaces the default command policy. nil disables it.
func WithPolicy(p *Policy) Option { return func(e *Executor) { e.policy = p } }

// WithTempDir sets the parent directory of per-invocation working dirs.
func WithTempDir(dir string) Option { return func(e *Executor) { e.tempDir = dir } }

// WithPath sets the PATH handed to commands.
func WithPath(path string) Option { return func(e *Executor) { e.path = path } }

// NewExecutor creates an Executor with the default policy.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		policy:    DefaultPolicy(),
		path:      os.Getenv("PATH"),
		waitDelay: 2 * time.Second,
	}
	if e.path == "" {
		e.path = defaultPath
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one invocation and reports what happened. Failures of the unit
// are returned inside the Outcome.
func (e *Executor) Execute(ctx context.Context, inv Invocation) Outcome {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	var out Outcome
	switch u := inv.Unit.(type) {
	case *Command:
		out = e.runCommand(ctx, u, inv)
	case Func:
		out = runFunc(ctx, u, inv)
	case nil:
		out = Outcome{Err: &ScriptError{ExitCode: -1, Message: "node has no executable unit"}}
	default:
		out = Outcome{Err: &ScriptError{ExitCode: -1, Message: fmt.Sprintf("unsupported unit type %T", inv.Unit)}}
	}
	out.Duration = time.Since(start)

	if out.Err == nil {
		outputs, err := conformOutputs(out.Outputs, inv.Outputs)
		if err != nil {
			out.Err = err
			out.Outputs = nil
		} else {
			out.Outputs = outputs
		}
	}
	if out.Err != nil {
		out.Outputs = nil
		logger.Debug("Unit failed.", "node_id", inv.NodeID, "unit", describe(inv.Unit), "error", out.Err, "duration", out.Duration)
	} else {
		logger.Debug("Unit succeeded.", "node_id", inv.NodeID, "outputs", len(out.Outputs), "duration", out.Duration)
	}
	return out
}

func describe(u Unit) string {
	if u == nil {
		return "<none>"
	}
	return u.Describe()
}

// conformOutputs rejects undeclared ports and converts every value to the
// declared port type.
func conformOutputs(values map[string]cty.Value, ports []model.Port) (map[string]cty.Value, error) {
	declared := make(map[string]model.Port, len(ports))
	for _, p := range ports {
		declared[p.ID] = p
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]cty.Value, len(values))
	var undeclared []string
	for _, k := range keys {
		p, ok := declared[k]
		if !ok {
			undeclared = append(undeclared, k)
			continue
		}
		v, err := p.Type.Conform(values[k])
		if err != nil {
			return nil, &ScriptError{Message: fmt.Sprintf("output %q does not conform to its declared type", k), Err: err}
		}
		out[k] = v
	}
	if len(undeclared) > 0 {
		return nil, &ScriptError{Message: fmt.Sprintf("outputs not declared as ports: %s", strings.Join(undeclared, ", "))}
	}
	return out, nil
}

// inputEnv renders each input value as text for the GRIDFLOW_IN_* variables.
func inputEnv(inputs map[string]cty.Value) []string {
	env := make([]string, 0, len(inputs))
	for port, v := range inputs {
		name := EnvInputPrefix + strings.ToUpper(strings.Map(func(r rune) rune {
			if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
				return r
			}
			return '_'
		}, port))
		env = append(env, name+"="+ctyval.String(v))
	}
	sort.Strings(env)
	return env
}
