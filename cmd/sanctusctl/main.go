package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sanctusctl",
		Short: "Operator tooling for the Sanctus parish backend",
		Long: `sanctusctl runs maintenance tasks against a Sanctus deployment.

  sanctusctl migrate up|down|status   Apply or inspect schema migrations
  sanctusctl hash-password            Produce a stored password hash
  sanctusctl check-db                 Verify database connectivity
  sanctusctl jobs trigger|stats       Enqueue or inspect background jobs

Connection settings are read from the same environment as the server
(PG_DSN, REDIS_ADDR).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newMigrateCmd(),
		newHashPasswordCmd(),
		newCheckDBCmd(),
		newJobsCmd(),
	)
	return root
}
