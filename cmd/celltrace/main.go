// Package main implements the celltrace CLI tool.
//
// celltrace executes scenario scripts against a shared tracked cell and
// prints how each step moves the borrow state and reference count. It is a
// teaching aid for the cellkit borrow rules.
//
// Usage:
//
//	celltrace run scenario.yaml...   # Run scenario scripts
//	celltrace demo                   # Run the built-in scenarios
//	celltrace version                # Show version information
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
