package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sanctus-app/sanctus/internal/platform/db"
)

func newMigrateCmd() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:       "migrate [up|down|status|version|redo|reset|up-to N|down-to N]",
		Short:     "Run embedded schema migrations",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"up", "down", "status", "version", "redo", "reset", "up-to", "down-to"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var target int64
			if len(args) == 2 {
				n, err := strconv.ParseInt(args[1], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid target version %q: %w", args[1], err)
				}
				target = n
			}
			return db.Migrate(cmd.Context(), db.MigrateOptions{
				DSN:     dsn,
				Command: args[0],
				Target:  target,
				Logger:  newLogger(),
			})
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", os.Getenv("PG_DSN"), "PostgreSQL connection string")
	return cmd
}
