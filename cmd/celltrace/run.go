package main

import (
	"github.com/spf13/cobra"

	"github.com/kolkov/cellkit/cmd/celltrace/scenario"
)

func newRunCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Run scenario scripts",
		Example: `  celltrace run readers.yaml
  celltrace run -v scenarios/*.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios := make([]*scenario.Scenario, 0, len(args))
			for _, path := range args {
				s, err := scenario.Load(path)
				if err != nil {
					return err
				}
				scenarios = append(scenarios, s)
			}
			return runAll(cmd.OutOrStdout(), scenarios, opts.logger)
		},
	}
}
