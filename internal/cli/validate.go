package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newValidateCommand(flags *globalFlags, std streams) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <graph-path>",
		Short: "Check a graph without running it",
		Long: `Load a graph and report every structural problem: cycles, dangling edges,
incompatible port types, fan-in violations, duplicate ids and invalid node
configs. Nothing is executed. The exit code is 2 when the graph is invalid.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadEngineConfig(flags)
			if err != nil {
				return err
			}
			a, err := newApp(cmd, flags, std, args[0], cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(cmd.Context()))
			return a.Validate()
		},
	}
}
