package cli

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/gridflow/internal/app"
	"github.com/specialistvlad/gridflow/internal/config"
	"github.com/spf13/cobra"
)

// globalFlags holds the persistent flags of the root command.
type globalFlags struct {
	LogLevel  string
	LogFormat string
	EnvFile   string
	NoColor   bool
}

// streams are where commands write results and logs.
type streams struct {
	out io.Writer
	err io.Writer
}

// Execute builds the command tree, runs it with args and maps the outcome
// onto an *ExitError. Help output is not an error.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	root := NewRootCommand(outW, errW)
	root.SetArgs(args)
	return exitError(root.ExecuteContext(ctx))
}

// NewRootCommand returns the gridflow command tree.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	flags := &globalFlags{}
	std := streams{out: outW, err: errW}

	root := &cobra.Command{
		Use:   "gridflow",
		Short: "gridflow - a workflow graph execution engine",
		Long: `gridflow runs directed graphs of typed processing steps. Each step runs as
an isolated unit of work, values travel along the graph's edges and every run
produces a per-node result even when some nodes fail.

Graphs are read from .json, .yaml/.yml or .hcl documents, or from a directory
of them. Engine settings come from GRIDFLOW_* environment variables, an
optional .env file and the flags below.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			slog.Debug("CLI parser started.", "command", cmd.Name())
			return nil
		},
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&flags.LogLevel, "log-level", "", "Logging level: debug, info, warn or error (default from GRIDFLOW_LOG_LEVEL or info).")
	pf.StringVar(&flags.LogFormat, "log-format", "", "Log output format: text or json (default from GRIDFLOW_LOG_FORMAT or text).")
	pf.StringVar(&flags.EnvFile, "env-file", "", "Path to a .env file (default: ./.env when present).")
	pf.BoolVar(&flags.NoColor, "no-color", false, "Disable colored output.")

	root.AddCommand(
		newRunCommand(flags, std),
		newValidateCommand(flags, std),
		newServeCommand(flags, std),
		newWatchCommand(flags, std),
	)
	return root
}

// loadEngineConfig reads the environment and applies the global flags on
// top of it.
func loadEngineConfig(flags *globalFlags) (*config.Engine, error) {
	cfg, err := config.Load(flags.EnvFile)
	if err != nil {
		return nil, usageError(err)
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(flags.LogLevel)
	}
	if flags.LogFormat != "" {
		cfg.LogFormat = strings.ToLower(flags.LogFormat)
	}
	return cfg, nil
}

// newApp finishes the configuration and builds the App. Invalid settings
// are usage errors.
func newApp(cmd *cobra.Command, flags *globalFlags, std streams, graphPath string, cfg *config.Engine) (*app.App, error) {
	appCfg, err := app.NewConfig(app.Config{
		GraphPath: graphPath,
		Engine:    *cfg,
		NoColor:   flags.NoColor,
	})
	if err != nil {
		return nil, usageError(err)
	}
	slog.Debug("CLI parser finished successfully.", "graph", graphPath)
	return app.NewApp(cmd.Context(), std.out, std.err, appCfg)
}
