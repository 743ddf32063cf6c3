package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kolkov/cellkit/cmd/celltrace/scenario"
)

func newDemoCmd(opts *globalOptions) *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the built-in scenarios",
		Long: `Run the scenarios shipped with celltrace:

  readers block writer   two read borrows refuse a write until both are released
  writer blocks readers  a write borrow refuses reads until released
  shared lifecycle       clones share one value that outlives the original handle

Use --print to dump them as YAML, as a starting point for your own scripts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios, err := scenario.Builtin()
			if err != nil {
				return err
			}

			if printOnly {
				out := cmd.OutOrStdout()
				for _, s := range scenarios {
					fmt.Fprintln(out, "---")
					if err := s.Encode(out); err != nil {
						return err
					}
				}
				return nil
			}
			return runAll(cmd.OutOrStdout(), scenarios, opts.logger)
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the built-in scenarios as YAML instead of running them")
	return cmd
}
