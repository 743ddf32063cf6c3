package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kolkov/cellkit"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			info := cellkit.GetInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "celltrace version %s (%s, atomic=%t)\n", info.Version, info.Model, info.Atomic)
		},
	}
}
