package users

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/alfagnish/users-service/internal/config"
	"github.com/alfagnish/users-service/internal/database"
	"github.com/alfagnish/users-service/internal/testtools"
)

func staticParams() database.Params {
	return database.ParamsFrom(config.Defaults().DB)
}

func TestStoreList(t *testing.T) {
	ctx := context.Background()

	t.Run("should return every row and close the connection", func(t *testing.T) {
		conn := &testtools.Connector{
			Rows: testtools.NewRows([]string{"id", "name"},
				[]any{int32(1), "Alice"},
				[]any{int32(2), "Bob"},
			),
		}
		store := NewStore(conn, staticParams, zap.NewNop())

		records, err := store.List(ctx)
		require.NoError(t, err)

		require.Len(t, records, 2)
		for _, rec := range records {
			assert.Equal(t, []string{"id", "name"}, rec.Columns())
		}
		assert.Equal(t, []string{`SELECT * FROM "User"`}, conn.Queries())
		assert.Equal(t, 1, conn.Opened())
		assert.Equal(t, 1, conn.Closed())
	})

	t.Run("should return an empty list for an empty table", func(t *testing.T) {
		conn := &testtools.Connector{Rows: testtools.NewRows([]string{"id", "name"})}
		store := NewStore(conn, staticParams, zap.NewNop())

		records, err := store.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
		assert.Equal(t, 1, conn.Closed())
	})

	t.Run("should close the connection when the query fails", func(t *testing.T) {
		queryErr := errors.New(`relation "User" does not exist`)
		conn := &testtools.Connector{QueryErr: queryErr}
		store := NewStore(conn, staticParams, zap.NewNop())

		records, err := store.List(ctx)
		assert.ErrorIs(t, err, queryErr)
		assert.Nil(t, records)
		assert.Equal(t, 1, conn.Opened())
		assert.Equal(t, 1, conn.Closed())
	})

	t.Run("should close the connection when reading rows fails", func(t *testing.T) {
		readErr := errors.New("connection reset by peer")
		conn := &testtools.Connector{
			Rows: testtools.NewRows([]string{"id"}, []any{int32(1)}).WithErr(readErr),
		}
		store := NewStore(conn, staticParams, zap.NewNop())

		records, err := store.List(ctx)
		assert.ErrorIs(t, err, readErr)
		assert.Nil(t, records)
		assert.Equal(t, 1, conn.Closed())
	})

	t.Run("should propagate connection failures", func(t *testing.T) {
		dialErr := errors.New("dial tcp: lookup database: no such host")
		conn := &testtools.Connector{ConnectErr: dialErr}
		store := NewStore(conn, staticParams, zap.NewNop())

		records, err := store.List(ctx)
		assert.ErrorIs(t, err, dialErr)
		assert.Nil(t, records)
		assert.Equal(t, 0, conn.Opened())
		assert.Equal(t, 0, conn.Closed())
	})

	t.Run("should log but not fail on close errors", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		conn := &testtools.Connector{
			Rows:     testtools.NewRows([]string{"id"}, []any{int32(1)}),
			CloseErr: errors.New("broken pipe"),
		}
		store := NewStore(conn, staticParams, zap.New(core))

		records, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, records, 1)
		assert.Equal(t, 1, logs.FilterMessage("failed to close connection").Len())
	})

	t.Run("should resolve parameters on every call", func(t *testing.T) {
		conn := &testtools.Connector{}
		hosts := []string{"primary", "replica"}
		call := 0
		store := NewStore(conn, func() database.Params {
			p := staticParams()
			p.Host = hosts[call]
			call++
			return p
		}, zap.NewNop())

		_, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, "primary", conn.LastParams().Host)

		_, err = store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, "replica", conn.LastParams().Host)
	})

	t.Run("should open one connection per concurrent call", func(t *testing.T) {
		conn := &testtools.Connector{Rows: testtools.NewRows([]string{"id"}, []any{int32(1)})}
		store := NewStore(conn, staticParams, zap.NewNop())

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.List(ctx)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, 20, conn.Opened())
		assert.Equal(t, 20, conn.Closed())
	})
}

func TestStorePing(t *testing.T) {
	ctx := context.Background()

	conn := &testtools.Connector{}
	store := NewStore(conn, staticParams, zap.NewNop())
	require.NoError(t, store.Ping(ctx))
	assert.Equal(t, 1, conn.Closed())

	conn = &testtools.Connector{ConnectErr: errors.New("refused")}
	store = NewStore(conn, staticParams, zap.NewNop())
	assert.Error(t, store.Ping(ctx))
}
