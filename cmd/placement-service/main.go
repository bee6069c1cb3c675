package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rackslot/rackslot-backend/internal/placement/events"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	root := &cobra.Command{
		Use:          events.ServiceName,
		Short:        "Warehouse slot allocation, placement and pick service",
		SilenceUsage: true,
		// Without a subcommand the service starts, as in the container image.
		RunE: serve.RunE,
	}
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve, newMigrateCmd(), newSeedCmd())
	return root
}
