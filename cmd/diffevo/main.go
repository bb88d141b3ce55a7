// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Command diffevo runs differential evolution solves from the command line.
//
// Usage:
//
//	diffevo solve --source examples/sphere/eval.wgsl --config examples/sphere/problem.yaml
//	diffevo solve --backend host --source examples/sphere/eval.yaml --iterations 500 --seed 1
//	diffevo backends
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	// Backends register themselves on import.
	_ "github.com/gogpu/diffevo/backend/hostcpu"
	_ "github.com/gogpu/diffevo/backend/wgpu"
)

// errReported marks a failure whose diagnostics were already written.
var errReported = errors.New("solve failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "diffevo: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "diffevo",
		Short:         "Differential evolution on a compute device",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSolveCmd(), newBackendsCmd())
	return root
}
