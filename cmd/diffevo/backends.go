// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/diffevo/compute"
)

func newBackendsCmd() *cobra.Command {
	var probe bool
	cmd := &cobra.Command{
		Use:   "backends",
		Short: "List registered backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, name := range compute.Available() {
				if !probe {
					fmt.Fprintln(out, name)
					continue
				}
				dev, err := compute.Open(name)
				if err != nil {
					fmt.Fprintf(out, "%s\tunavailable: %v\n", name, err)
					continue
				}
				info := dev.Info()
				fmt.Fprintf(out, "%s\t%s\t%s\n", name, info.Name, info.Precision)
				if err := dev.Close(); err != nil {
					return fmt.Errorf("close %s: %w", name, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "open each backend and report its device")
	return cmd
}
