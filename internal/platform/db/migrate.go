package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// MigrateOptions defines how to run migrations.
type MigrateOptions struct {
	DSN     string
	Command string // up, down, status, version, redo, reset, up-to, down-to
	Target  int64
	Logger  *slog.Logger
}

// Migrate runs the embedded goose migrations through the pgx stdlib driver.
func Migrate(ctx context.Context, opts MigrateOptions) error {
	if strings.TrimSpace(opts.DSN) == "" {
		return fmt.Errorf("platform/db: migrate: dsn required")
	}
	if opts.Logger != nil {
		goose.SetLogger(gooseLogger{logger: opts.Logger})
	}
	goose.SetBaseFS(migrationsFS)
	goose.SetTableName("schema_migrations")
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("platform/db: migrate dialect: %w", err)
	}

	conn, err := sql.Open("pgx", opts.DSN)
	if err != nil {
		return fmt.Errorf("platform/db: migrate open: %w", err)
	}
	defer conn.Close()

	switch strings.ToLower(strings.TrimSpace(opts.Command)) {
	case "", "up":
		return goose.UpContext(ctx, conn, migrationsDir)
	case "down":
		return goose.DownContext(ctx, conn, migrationsDir)
	case "status":
		return goose.StatusContext(ctx, conn, migrationsDir)
	case "version":
		return goose.VersionContext(ctx, conn, migrationsDir)
	case "redo":
		return goose.RedoContext(ctx, conn, migrationsDir)
	case "reset":
		return goose.ResetContext(ctx, conn, migrationsDir)
	case "up-to":
		return goose.UpToContext(ctx, conn, migrationsDir, opts.Target)
	case "down-to":
		return goose.DownToContext(ctx, conn, migrationsDir, opts.Target)
	default:
		return fmt.Errorf("platform/db: unknown migration command: %s", opts.Command)
	}
}

type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
