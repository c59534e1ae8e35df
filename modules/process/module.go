// Package process implements the "process" kind: user logic run as an
// isolated operating system process, or one of a few built-in transforms.
package process

import (
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/specialistvlad/gridflow/internal/script"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&Kind{})
}

// Config is the decoded node config. Exactly one of Command, Script and
// Transform must be set.
type Config struct {
	// Command is either a shell command line (string) or an argv list.
	Command any `mapstructure:"command"`
	// Script is passed to Interpreter with "-c".
	Script      string `mapstructure:"script"`
	Interpreter string `mapstructure:"interpreter"`
	// Transform names a built-in transform, see transforms.
	Transform string `mapstructure:"transform"`
	Separator string `mapstructure:"separator"`

	Env     map[string]string `mapstructure:"env"`
	Timeout time.Duration     `mapstructure:"timeout"`
}

// Kind is the "process" node kind.
type Kind struct{}

func (k *Kind) Name() string { return model.KindProcess }

func (k *Kind) Ports(n *model.Node) ([]model.Port, []model.Port) {
	return nil, nil
}

func (k *Kind) Check(n *model.Node) error {
	cfg, err := decode(n)
	if err != nil {
		return err
	}

	set := 0
	for _, b := range []bool{cfg.Command != nil, cfg.Script != "", cfg.Transform != ""} {
		if b {
			set++
		}
	}
	if set != 1 {
		return errors.New("exactly one of command, script or transform must be set")
	}
	if cfg.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}

	if cfg.Transform != "" {
		if _, ok := transforms[cfg.Transform]; !ok {
			return fmt.Errorf("unknown transform %q", cfg.Transform)
		}
		return nil
	}

	args, err := cfg.argv()
	if err != nil {
		return err
	}
	for _, arg := range args {
		for _, ref := range registry.References(arg) {
			if _, ok := n.Input(ref); !ok {
				return fmt.Errorf("reference ${%s} does not name an input port", ref)
			}
		}
	}
	return nil
}

func (k *Kind) Unit(n *model.Node, inputs map[string]cty.Value) (script.Unit, error) {
	cfg, err := decode(n)
	if err != nil {
		return nil, err
	}
	if cfg.Transform != "" {
		return transform(n, cfg)
	}

	args, err := cfg.argv()
	if err != nil {
		return nil, err
	}
	resolved := make([]string, len(args))
	for i, arg := range args {
		resolved[i] = registry.Substitute(arg, inputs)
	}
	return &script.Command{Args: resolved, Env: cfg.Env}, nil
}

// Timeout implements registry.Timeouter.
func (k *Kind) Timeout(n *model.Node) time.Duration {
	cfg, err := decode(n)
	if err != nil {
		return 0
	}
	return cfg.Timeout
}

func decode(n *model.Node) (Config, error) {
	var cfg Config
	err := registry.DecodeConfig(n.Config, &cfg)
	return cfg, err
}

func (c Config) argv() ([]string, error) {
	if c.Script != "" {
		interp := c.Interpreter
		if interp == "" {
			interp = "sh"
		}
		return []string{interp, "-c", c.Script}, nil
	}
	switch cmd := c.Command.(type) {
	case string:
		if cmd == "" {
			return nil, errors.New("command must not be empty")
		}
		return []string{"sh", "-c", cmd}, nil
	case []string:
		if len(cmd) == 0 {
			return nil, errors.New("command must not be empty")
		}
		return cmd, nil
	case []any:
		if len(cmd) == 0 {
			return nil, errors.New("command must not be empty")
		}
		args := make([]string, len(cmd))
		for i, a := range cmd {
			s, ok := a.(string)
			if !ok {
				return nil, fmt.Errorf("command argument %d must be a string, got %T", i, a)
			}
			args[i] = s
		}
		return args, nil
	default:
		return nil, fmt.Errorf("command must be a string or a list of strings, got %T", c.Command)
	}
}
