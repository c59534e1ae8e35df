package script

import (
	"context"
	"strings"
	"time"

	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/zclconf/go-cty/cty"
)

// Unit is one node's worth of user logic. It is either a Command or a Func.
type Unit interface {
	// Describe returns a short human-readable form for logs.
	Describe() string
}

// Command runs an executable. Args[0] is looked up in PATH.
type Command struct {
	Args []string
	// Env is added on top of the minimal environment every process gets.
	Env map[string]string
}

// Describe implements Unit.
func (c *Command) Describe() string { return strings.Join(c.Args, " ") }

// Shell builds a Command that runs script through "sh -c".
func Shell(script string, env map[string]string) *Command {
	return &Command{Args: []string{"sh", "-c", script}, Env: env}
}

// Func is built-in logic. It receives the node's input values keyed by port id
// and returns output values keyed by port id. It must honour ctx.
type Func func(ctx context.Context, inputs map[string]cty.Value) (map[string]cty.Value, error)

// Describe implements Unit.
func (Func) Describe() string { return "builtin" }

// Limits bounds a single invocation. Zero values disable a ceiling.
type Limits struct {
	Timeout time.Duration
	// MaxOutputBytes caps captured stdout and stderr (each is truncated) and
	// the structured output document (exceeding it is a failure).
	MaxOutputBytes int64
	// MaxMemoryBytes and MaxCPUSeconds are enforced on Linux only.
	MaxMemoryBytes uint64
	MaxCPUSeconds  uint64
}

// Invocation is everything Execute needs to run one node.
type Invocation struct {
	NodeID  string
	Unit    Unit
	Inputs  map[string]cty.Value
	Outputs []model.Port
	Limits  Limits
}

// Outcome is the result of one invocation. Err is nil on success.
type Outcome struct {
	Outputs   map[string]cty.Value
	Stdout    string
	Stderr    string
	ExitCode  int
	Truncated bool
	Duration  time.Duration
	Err       error
}

// OK reports whether the unit succeeded.
func (o Outcome) OK() bool { return o.Err == nil }
