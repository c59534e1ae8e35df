package cli

import (
	"context"

	"github.com/spf13/cobra"
)

type serveFlags struct {
	Addr            string
	HealthcheckPort int
	RedisURL        string
}

func newServeCommand(flags *globalFlags, std streams) *cobra.Command {
	sf := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve <graph-path>",
		Short: "Serve a graph over socket.io",
		Long: `Load a graph and accept runs from socket.io clients until interrupted.
Clients emit run:start with an execution request and receive the run's
events; run:watch follows a run started elsewhere and run:cancel stops one.

Finished runs are archived in memory, or in Redis when GRIDFLOW_REDIS_URL or
--redis-url is set.`,
		Example: `  gridflow serve ./graph.yaml --addr :8090 --healthcheck-port 8081`,
		Args:    usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadEngineConfig(flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.EventsAddr = sf.Addr
			}
			if cmd.Flags().Changed("healthcheck-port") {
				cfg.HealthcheckPort = sf.HealthcheckPort
			}
			if cmd.Flags().Changed("redis-url") {
				cfg.RedisURL = sf.RedisURL
			}
			a, err := newApp(cmd, flags, std, args[0], cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(cmd.Context()))
			return a.Serve(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringVar(&sf.Addr, "addr", "", "Listen address of the event server (default from GRIDFLOW_EVENTS_ADDR or :8090).")
	f.IntVar(&sf.HealthcheckPort, "healthcheck-port", 0, "Port for a separate HTTP health check server. 0 is disabled.")
	f.StringVar(&sf.RedisURL, "redis-url", "", "Redis URL for the run archive.")
	return cmd
}
