// Package testutil provides a PostgreSQL database for integration tests.
//
// A single container is started lazily with testcontainers and shared by
// the whole test binary; every call to EmptyDB creates its own database in
// it. Set DATABASE_URL (or DATABASE_HOST and friends) to use an existing
// server instead.
package testutil

import (
	"cmp"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pthm/sqlgate/internal/cli"
)

// Singleton container state
var (
	singletonOnce sync.Once
	singletonDSN  string
	singletonErr  error
)

// serverDSN returns the DSN of an existing server named by DATABASE_URL or
// DATABASE_HOST, or "" when a container should be started.
func serverDSN() (string, error) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn, nil
	}
	host := os.Getenv("DATABASE_HOST")
	if host == "" {
		return "", nil
	}
	port, err := strconv.Atoi(cmp.Or(os.Getenv("DATABASE_PORT"), "5432"))
	if err != nil {
		return "", fmt.Errorf("DATABASE_PORT: %w", err)
	}
	cfg := cli.Config{Database: cli.DatabaseConfig{
		Driver:   cli.DriverPostgres,
		Host:     host,
		Port:     port,
		Name:     cmp.Or(os.Getenv("DATABASE_NAME"), "postgres"),
		User:     cmp.Or(os.Getenv("DATABASE_USER"), "postgres"),
		Password: os.Getenv("DATABASE_PASSWORD"),
		SSLMode:  cmp.Or(os.Getenv("DATABASE_SSLMODE"), "prefer"),
	}}
	return cfg.DSN()
}

// AdminDSN returns the DSN of the shared server, starting the container on
// first use.
func AdminDSN() (string, error) {
	singletonOnce.Do(func() {
		if singletonDSN, singletonErr = serverDSN(); singletonDSN != "" || singletonErr != nil {
			return
		}

		ctx := context.Background()
		container, err := postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("postgres"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			singletonErr = fmt.Errorf("failed to start PostgreSQL container: %w", err)
			return
		}

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			_ = container.Terminate(ctx)
			singletonErr = fmt.Errorf("failed to get PostgreSQL connection string: %w", err)
			return
		}
		singletonDSN = dsn
		// Container is not stored - ryuk will handle cleanup automatically
	})

	return singletonDSN, singletonErr
}

// EmptyDB returns a connection to a new, empty database opened with the
// given database/sql driver name ("pgx" or "postgres"). The database is
// dropped when the test completes.
func EmptyDB(tb testing.TB, driver string) *sql.DB {
	tb.Helper()

	adminDSN, err := AdminDSN()
	require.NoError(tb, err, "failed to start PostgreSQL")

	dbName := uniqueDBName("sqlgate")
	require.NoError(tb, createDatabase(adminDSN, dbName), "failed to create test database")

	db, err := sql.Open(driver, replaceDBName(adminDSN, dbName))
	require.NoError(tb, err, "failed to connect to test database")
	require.NoError(tb, db.Ping(), "failed to ping test database")

	tb.Cleanup(func() {
		_ = db.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = dropDatabase(ctx, adminDSN, dbName)
	})
	return db
}

// uniqueDBName generates a unique database name with the given prefix.
func uniqueDBName(prefix string) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}

// createDatabase creates a new empty database.
func createDatabase(adminDSN, name string) error {
	db, err := sql.Open("pgx", adminDSN)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	_, err = db.Exec(fmt.Sprintf("CREATE DATABASE %s", name))
	return err
}

// dropDatabase drops a database, disconnecting its users first.
func dropDatabase(ctx context.Context, adminDSN, name string) error {
	db, err := sql.Open("pgx", adminDSN)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	_, _ = db.ExecContext(ctx, fmt.Sprintf(`
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = '%s' AND pid <> pg_backend_pid()
	`, name))

	_, err = db.ExecContext(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s", name))
	return err
}

// replaceDBName replaces the database name in a PostgreSQL URL.
func replaceDBName(dsn, newDB string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return dsn
	}
	u.Path = "/" + newDB
	return u.String()
}
