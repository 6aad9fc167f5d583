// File: cmd/wsproxy/strategies.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/momentics/wsproxy/adapter"
)

var strategyNotes = map[adapter.Kind]string{
	adapter.KindNaive:       "growable region, compacted after reads",
	adapter.KindDynamic:     "one chunk per frame, capacity caps the total",
	adapter.KindStatic:      "fixed region, frames back to back, reset when drained",
	adapter.KindSingleFrame: "holds exactly one frame at a time",
	adapter.KindShifting:    "fixed region, compacts to make room",
	adapter.KindCircular:    "fixed ring, wraps frames around the end",
}

func strategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List buffering strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tBOUNDED\tBEHAVIOUR")
			for _, k := range adapter.Kinds() {
				fmt.Fprintf(w, "%s\t%t\t%s\n", k, k.Bounded(), strategyNotes[k])
			}
			return w.Flush()
		},
	}
}
