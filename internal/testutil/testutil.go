// Package testutil starts a disposable PostgreSQL for repository tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/INFO333/mhoms-api/internal/platform/db"
)

// TestDB manages a testcontainers PostgreSQL instance with the schema applied.
type TestDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	DSN       string
}

// NewTestDB starts postgres, applies ./migrations and registers cleanup.
// Skipped under -short.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:16-alpine",
		tcPostgres.WithDatabase("mhoms_test"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	tdb := &TestDB{Container: container}
	t.Cleanup(tdb.Cleanup)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}
	tdb.DSN = dsn

	pool, err := db.NewPool(ctx, db.PoolConfig{DatabaseURL: dsn, MaxConns: 5, Timezone: "UTC"})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	tdb.Pool = pool

	if _, err := db.NewMigrator(pool, os.DirFS(migrationsDir())).Up(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return tdb
}

// Cleanup closes the pool and terminates the container.
func (tdb *TestDB) Cleanup() {
	if tdb.Pool != nil {
		tdb.Pool.Close()
	}
	if tdb.Container != nil {
		_ = tdb.Container.Terminate(context.Background())
	}
}

// Truncate clears all tables for test isolation.
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()
	_, err := tdb.Pool.Exec(context.Background(),
		`TRUNCATE appointments, patients, doctors, users RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

func migrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}
