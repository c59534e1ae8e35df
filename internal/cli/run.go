package cli

import (
	"context"
	"io"
	"time"

	"github.com/specialistvlad/gridflow/internal/engine"
	"github.com/specialistvlad/gridflow/internal/session"
	"github.com/spf13/cobra"
)

type runFlags struct {
	Inputs          []string
	InputsFile      string
	Workers         int
	NodeTimeout     time.Duration
	MaxConcurrency  int
	FailFast        bool
	HealthcheckPort int
	JSON            bool
}

func newRunCommand(flags *globalFlags, std streams) *cobra.Command {
	rf := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run <graph-path>",
		Short: "Run a graph once and print the result",
		Long: `Load a graph, run it once with the given initial inputs and print a
per-node summary. The exit code is 0 when the run succeeded, 1 when it failed
or was cancelled and 2 when the graph is invalid.

An input key is either node.port or a bare node id, which assigns every
output port of that input node.`,
		Example: `  # Run a graph with one text input
  gridflow run ./graph.yaml --input name=world

  # Inputs from a file, JSON result on stdout
  gridflow run ./graphs --inputs-file inputs.json --json`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, flags, rf, std, args[0])
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&rf.Inputs, "input", "i", nil, "Initial input as key=value; repeatable.")
	f.StringVar(&rf.InputsFile, "inputs-file", "", "JSON object of initial inputs.")
	f.IntVar(&rf.Workers, "workers", 0, "Worker pool size; 0 keeps GRIDFLOW_WORKERS.")
	f.DurationVar(&rf.NodeTimeout, "node-timeout", 0, "Per-node timeout for this run.")
	f.IntVar(&rf.MaxConcurrency, "max-concurrency", 0, "Concurrent nodes per layer for this run.")
	f.BoolVar(&rf.FailFast, "fail-fast", false, "Stop scheduling after the first node failure.")
	f.IntVar(&rf.HealthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check server. 0 keeps GRIDFLOW_HEALTHCHECK_PORT.")
	f.BoolVar(&rf.JSON, "json", false, "Print the result as JSON instead of the summary.")
	return cmd
}

func runGraph(cmd *cobra.Command, flags *globalFlags, rf *runFlags, std streams, path string) error {
	inputs, err := parseInputs(rf.InputsFile, rf.Inputs)
	if err != nil {
		return usageError(err)
	}

	cfg, err := loadEngineConfig(flags)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = rf.Workers
	}
	if cmd.Flags().Changed("healthcheck-port") {
		cfg.HealthcheckPort = rf.HealthcheckPort
	}

	out := std.out
	if rf.JSON {
		std.out = io.Discard
	}
	a, err := newApp(cmd, flags, std, path, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(cmd.Context()))

	res, runErr := a.Run(cmd.Context(), inputs, session.Options{
		NodeTimeout:    rf.NodeTimeout,
		MaxConcurrency: rf.MaxConcurrency,
		FailFast:       rf.FailFast,
	})
	if rf.JSON && res != nil {
		raw, err := engine.EncodeResult(res)
		if err != nil {
			return err
		}
		if _, err := out.Write(append(raw, '\n')); err != nil {
			return err
		}
	}
	return runErr
}
