package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sanctus-app/sanctus/internal/platform/db"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func newCheckDBCmd() *cobra.Command {
	var (
		dsn     string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "check-db",
		Short: "Verify the database is reachable and migrated",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			pool, err := db.New(ctx, dsn, 1)
			if err != nil {
				return err
			}
			defer pool.Close()

			var version int64
			if err := pool.QueryRow(ctx, `SELECT COALESCE(MAX(version_id), 0) FROM schema_migrations WHERE is_applied`).Scan(&version); err != nil {
				return fmt.Errorf("read schema version: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "database ok, schema version %d\n", version)
			return err
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", os.Getenv("PG_DSN"), "PostgreSQL connection string")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "connection timeout")
	return cmd
}
