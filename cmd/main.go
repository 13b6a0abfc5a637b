// Package main provides the kaluli command line entry point.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kaluli",
		Short:         "Photo-based food calorie tracker",
		Long:          "kaluli analyzes meal photos into calorie estimates and keeps a per-user local log, usable offline and optionally synced to a cloud account.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newAnalyzeCmd(),
		newLogCmd(),
		newStatsCmd(),
		newDrainCmd(),
		newUserCmd(),
		newSyncCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
