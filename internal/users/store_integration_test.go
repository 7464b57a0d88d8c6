//go:build integration

package users

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alfagnish/users-service/internal/database"
)

var postgresParams database.Params

func TestMain(m *testing.M) {
	params, closePostgres := startPostgresDB("ecommerce_db")
	postgresParams = params

	exitCode := m.Run()

	// No defer: os.Exit skips deferred calls.
	closePostgres()

	os.Exit(exitCode)
}

func startPostgresDB(dbName string) (database.Params, func()) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not connect to docker: %s", err)
	}

	resource, err := pool.RunWithOptions(
		&dockertest.RunOptions{
			Repository: "postgres",
			Tag:        "16",
			Env: []string{
				"POSTGRES_PASSWORD=password",
				"POSTGRES_USER=user",
				"POSTGRES_DB=" + dbName,
				"listen_addresses = '*'",
			},
		},
		func(config *docker.HostConfig) {
			config.AutoRemove = true
			config.RestartPolicy = docker.RestartPolicy{Name: "no"}
		},
	)
	if err != nil {
		log.Fatalf("Could not start resource: %s", err)
	}

	params := database.Params{
		User:     "user",
		Password: "password",
		Name:     dbName,
		Host:     "localhost",
		Port:     resource.GetPort("5432/tcp"),
	}
	fmt.Println("Connecting to postgres on url: ", params.Redacted())

	resource.Expire(60) // hard kill the container after 60 seconds

	pool.MaxWait = 20 * time.Second
	err = pool.Retry(func() error {
		conn, err := pgx.Connect(context.Background(), params.ConnString())
		if err != nil {
			return err
		}
		defer conn.Close(context.Background())
		return conn.Ping(context.Background())
	})
	if err != nil {
		log.Fatalf("Could not connect to docker: %s", err)
	}

	return params, func() {
		if err := pool.Purge(resource); err != nil {
			log.Fatalf("Could not purge resource: %s", err)
		}
	}
}

func execSQL(t *testing.T, sql string) {
	t.Helper()
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, postgresParams.ConnString())
	require.NoError(t, err)
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, sql)
	require.NoError(t, err)
}

func openConnections(t *testing.T) int {
	t.Helper()
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, postgresParams.ConnString())
	require.NoError(t, err)
	defer conn.Close(ctx)

	var n int
	err = conn.QueryRow(ctx,
		`SELECT count(*) FROM pg_stat_activity WHERE datname = $1 AND pid <> pg_backend_pid()`,
		postgresParams.Name,
	).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestStoreListPostgres(t *testing.T) {
	ctx := context.Background()
	connector := database.NewPgxConnector(zap.NewNop(), database.NewSlowQueryTracer(zap.NewNop(), 0))
	store := NewStore(connector, func() database.Params { return postgresParams }, zap.NewNop())

	t.Run("should fail while the table is missing", func(t *testing.T) {
		execSQL(t, `DROP TABLE IF EXISTS "User"`)

		_, err := store.List(ctx)
		assert.Error(t, err)
	})

	t.Run("should return an empty list for an empty table", func(t *testing.T) {
		execSQL(t, `DROP TABLE IF EXISTS "User"`)
		execSQL(t, `CREATE TABLE "User" (id INT PRIMARY KEY, name TEXT)`)

		records, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)

		b, err := json.Marshal(records)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(b))
	})

	t.Run("should return the seeded users", func(t *testing.T) {
		execSQL(t, `DROP TABLE IF EXISTS "User"`)
		execSQL(t, `CREATE TABLE "User" (id INT PRIMARY KEY, name TEXT)`)
		execSQL(t, `INSERT INTO "User" (id, name) VALUES (1, 'Alice'), (2, 'Bob')`)

		records, err := store.List(ctx)
		require.NoError(t, err)

		var got []map[string]any
		b, err := json.Marshal(records)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(b, &got))
		assert.ElementsMatch(t, []map[string]any{
			{"id": float64(1), "name": "Alice"},
			{"id": float64(2), "name": "Bob"},
		}, got)
	})

	t.Run("should not leave connections behind", func(t *testing.T) {
		before := openConnections(t)
		for i := 0; i < 5; i++ {
			_, err := store.List(ctx)
			require.NoError(t, err)
		}

		assert.Eventually(t, func() bool {
			return openConnections(t) <= before
		}, 5*time.Second, 100*time.Millisecond)
	})

	t.Run("should fail against an unreachable database", func(t *testing.T) {
		bad := postgresParams
		bad.Port = "1"
		unreachable := NewStore(connector, func() database.Params { return bad }, zap.NewNop())

		records, err := unreachable.List(ctx)
		assert.Error(t, err)
		assert.Nil(t, records)
	})
}
