package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"testing"
	"time"

	"ms-checkin/internal/config"
	"ms-checkin/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestInitializeMissingDirectory(t *testing.T) {
	r := NewRunner(config.DatabaseConfig{DSN: "postgres://x@localhost/none", MigrationsDir: "./does-not-exist"}, logger.New(io.Discard))

	err := r.Initialize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations directory does not exist")
	assert.NoError(t, r.Close())
}

func TestUpAndDownPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping PostgreSQL integration test in short mode")
	}

	ctx := context.Background()
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "checkin",
				"POSTGRES_PASSWORD": "checkin",
				"POSTGRES_DB":       "checkin",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer pg.Terminate(ctx)

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://checkin:checkin@%s:%s/checkin?sslmode=disable", host, port.Port())

	r := NewRunner(config.DatabaseConfig{DSN: dsn, MigrationsDir: "../../../migrations"}, logger.New(io.Discard))
	defer r.Close()
	require.NoError(t, r.Up())
	// a second run is a no-op
	require.NoError(t, r.Up())

	sqldb, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer sqldb.Close()

	for _, table := range []string{"tenants", "events", "master_data", "participations", "mail_jobs"} {
		var exists bool
		err := sqldb.QueryRowContext(ctx, "SELECT to_regclass($1) IS NOT NULL", "public."+table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, table)
	}

	require.NoError(t, r.Down())
	var exists bool
	require.NoError(t, sqldb.QueryRowContext(ctx, "SELECT to_regclass('public.participations') IS NOT NULL").Scan(&exists))
	assert.False(t, exists)
}
