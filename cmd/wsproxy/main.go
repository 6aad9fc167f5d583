// File: cmd/wsproxy/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// wsproxy accepts WebSocket connections and exposes each one as a byte
// stream to a built-in consumer.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/momentics/wsproxy/facade"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	facade.Info.Version = version
	facade.Info.Commit = commit

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wsproxy",
		Short: "Frame-to-stream WebSocket proxy",
		Long: `wsproxy terminates WebSocket connections and buffers their frames with a
selectable strategy, so consumers read each connection as a plain byte
stream and write back through it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		serveCmd(),
		sendCmd(),
		strategiesCmd(),
		versionCmd(),
	)
	return root
}
