package cli

import (
	"fmt"
	"time"

	"github.com/specialistvlad/gridflow/internal/app"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/engine"
	"github.com/specialistvlad/gridflow/internal/eventsrv"
	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/spf13/cobra"
)

type watchFlags struct {
	RunID          string
	Inputs         []string
	InputsFile     string
	NodeTimeout    time.Duration
	MaxConcurrency int
	FailFast       bool
	Namespace      string
	Insecure       bool
	ConnectTimeout time.Duration
	JSON           bool
}

func newWatchCommand(flags *globalFlags, std streams) *cobra.Command {
	wf := &watchFlags{}
	cmd := &cobra.Command{
		Use:   "watch <server-url>",
		Short: "Start or follow a run on a gridflow server",
		Long: `Connect to a server started with 'gridflow serve' and print the events of a
run as they happen. Without --run-id a new run is started from the given
inputs; with --run-id an existing run is followed. Interrupting a run this
command started cancels it.`,
		Example: `  # Start a run and follow it
  gridflow watch http://localhost:8090 --input name=world

  # Follow a run started elsewhere
  gridflow watch http://localhost:8090 --run-id 0b6c...`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watch(cmd, flags, wf, std, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&wf.RunID, "run-id", "", "Follow an existing run instead of starting one.")
	f.StringArrayVarP(&wf.Inputs, "input", "i", nil, "Initial input as key=value; repeatable.")
	f.StringVar(&wf.InputsFile, "inputs-file", "", "JSON object of initial inputs.")
	f.DurationVar(&wf.NodeTimeout, "node-timeout", 0, "Per-node timeout for the new run.")
	f.IntVar(&wf.MaxConcurrency, "max-concurrency", 0, "Concurrent nodes per layer for the new run.")
	f.BoolVar(&wf.FailFast, "fail-fast", false, "Stop scheduling after the first node failure.")
	f.StringVar(&wf.Namespace, "namespace", "", "socket.io namespace.")
	f.BoolVar(&wf.Insecure, "insecure", false, "Skip TLS certificate verification.")
	f.DurationVar(&wf.ConnectTimeout, "connect-timeout", eventsrv.DefaultConnectTimeout, "How long to wait for the connection.")
	f.BoolVar(&wf.JSON, "json", false, "Print the final result as JSON instead of the summary.")
	cmd.MarkFlagsMutuallyExclusive("run-id", "input")
	cmd.MarkFlagsMutuallyExclusive("run-id", "inputs-file")
	return cmd
}

func watch(cmd *cobra.Command, flags *globalFlags, wf *watchFlags, std streams, url string) error {
	cfg, err := loadEngineConfig(flags)
	if err != nil {
		return err
	}
	ctx := ctxlog.WithLogger(cmd.Context(), app.NewLogger(cfg.LogLevel, cfg.LogFormat, std.err))

	var req *engine.Request
	if wf.RunID == "" {
		inputs, err := parseInputs(wf.InputsFile, wf.Inputs)
		if err != nil {
			return usageError(err)
		}
		req = &engine.Request{
			InitialInputs:    inputs,
			TimeoutPerNodeMs: wf.NodeTimeout.Milliseconds(),
			MaxConcurrency:   wf.MaxConcurrency,
			FailFast:         wf.FailFast,
		}
	}

	client, err := eventsrv.Dial(ctx, url, eventsrv.DialOptions{
		Namespace:          wf.Namespace,
		InsecureSkipVerify: wf.Insecure,
		ConnectTimeout:     wf.ConnectTimeout,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	onMessage := func(m eventsrv.Message) {
		if !wf.JSON {
			fmt.Fprintln(std.out, describe(m))
		}
	}
	var res *engine.Result
	if req != nil {
		res, err = client.Start(ctx, req, onMessage)
	} else {
		res, err = client.Watch(ctx, wf.RunID, onMessage)
	}
	if err != nil {
		return err
	}

	if wf.JSON {
		raw, err := engine.EncodeResult(res)
		if err != nil {
			return err
		}
		fmt.Fprintln(std.out, string(raw))
	} else {
		app.PrintSummary(std.out, nil, res, flags.NoColor)
	}
	if res.Status != model.RunSucceeded {
		return fmt.Errorf("%w: run %s %s", app.ErrRunFailed, res.RunID, res.Status)
	}
	return nil
}

// describe renders one event as a log-style line.
func describe(m eventsrv.Message) string {
	switch m.Event {
	case eventsrv.EventNodeCompleted:
		nodeID, _ := m.Data["nodeId"].(string)
		status := ""
		if report, ok := m.Data["report"].(map[string]any); ok {
			status, _ = report["status"].(string)
		}
		return fmt.Sprintf("%s %s %s", m.Event, nodeID, status)
	case eventsrv.EventStarted, eventsrv.EventFinished:
		status, _ := m.Data["status"].(string)
		return fmt.Sprintf("%s %s %s", m.Event, m.RunID, status)
	default:
		return fmt.Sprintf("%s %s", m.Event, m.RunID)
	}
}
