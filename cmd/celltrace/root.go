package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kolkov/cellkit"
	"github.com/kolkov/cellkit/cmd/celltrace/scenario"
)

// globalOptions are the persistent flags shared by all subcommands.
type globalOptions struct {
	verbose bool
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "celltrace",
		Short: "Trace borrow states and reference counts of cellkit scenarios",
		Long: `celltrace runs scenario scripts against a shared, runtime-checked cell
(SharedPtr[*TrackedCell[int]]) and prints one line per step with the result,
the borrow state and the reference count.

Scenario steps may declare the result they expect; any mismatch makes the
command fail, so scripts double as executable notes on the borrow rules.`,
		SilenceUsage:  true,
		SilenceErrors: true, // main prints the error
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !opts.verbose {
				return nil
			}
			l, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			opts.logger = l
			cellkit.SetLogger(l)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = opts.logger.Sync()
		},
	}

	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log every step and refused borrow to stderr")

	root.AddCommand(
		newRunCmd(opts),
		newDemoCmd(opts),
		newVersionCmd(),
	)
	return root
}

// runAll executes scenarios in order and reports every failure, not just the first.
func runAll(out io.Writer, scenarios []*scenario.Scenario, log *zap.Logger) error {
	failed := 0
	for _, s := range scenarios {
		res, err := scenario.Run(s, out, log)
		if err != nil {
			failed++
			fmt.Fprintf(out, "--- FAIL: %s: %v\n\n", s.Name, err)
			continue
		}
		fmt.Fprintf(out, "--- PASS: %s (%d steps, released=%t)\n\n", s.Name, res.Steps, res.Released)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(scenarios))
	}
	return nil
}
