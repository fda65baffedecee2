// Package pgtest starts a throwaway PostgreSQL container with the schema
// migrated, for repository integration tests.
package pgtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sanctus-app/sanctus/internal/platform/db"
	_ "github.com/sanctus-app/sanctus/internal/testing/guard"
)

const image = "postgres:16-alpine"

// Start boots PostgreSQL, runs every migration and returns a pool. The
// test is skipped under -short or when Docker is unavailable.
func Start(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "sanctus",
				"POSTGRES_PASSWORD": "sanctus",
				"POSTGRES_DB":       "sanctus",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://sanctus:sanctus@%s:%s/sanctus?sslmode=disable", host, port.Port())

	if err := db.Migrate(ctx, db.MigrateOptions{DSN: dsn, Command: "up"}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := db.New(ctx, dsn, 4)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// SeedParish inserts a diocese and one parish and returns the parish id.
func SeedParish(t *testing.T, pool *pgxpool.Pool, code string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	var dioceseID, parishID uuid.UUID
	if err := pool.QueryRow(ctx, `INSERT INTO diocese (diocese_code, diocese_name) VALUES ($1, $2) RETURNING id`,
		"D-"+code, "Diocese "+code).Scan(&dioceseID); err != nil {
		t.Fatalf("seed diocese: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO parish (diocese_id, parish_code, parish_name) VALUES ($1, $2, $3) RETURNING id`,
		dioceseID, code, "Parish "+code).Scan(&parishID); err != nil {
		t.Fatalf("seed parish: %v", err)
	}
	return parishID
}
