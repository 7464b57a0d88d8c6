// Package users reads the externally owned "User" table.
package users

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alfagnish/users-service/internal/database"
	"github.com/alfagnish/users-service/internal/logger"
	"github.com/alfagnish/users-service/internal/metrics"
)

const (
	tableName      = "User"
	listUsersQuery = `SELECT * FROM "User"`
)

// Store opens a fresh connection for every call. It keeps no state
// between calls.
type Store struct {
	connector database.Connector
	params    func() database.Params
	logger    *zap.Logger
}

// NewStore creates a Store. params is consulted on every call.
func NewStore(connector database.Connector, params func() database.Params, logger *zap.Logger) *Store {
	return &Store{
		connector: connector,
		params:    params,
		logger:    logger,
	}
}

// List returns every row of the "User" table in the order the database
// produced them. The connection is closed before List returns, whatever
// the outcome.
func (s *Store) List(ctx context.Context) ([]database.Record, error) {
	conn, err := s.connector.Connect(ctx, s.params())
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}
	defer s.close(ctx, conn)

	start := time.Now()
	rows, err := conn.Query(ctx, listUsersQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	records, err := database.CollectRecords(rows)
	metrics.RecordDBQueryDuration("select", tableName, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	return records, nil
}

// Ping opens and closes one connection.
func (s *Store) Ping(ctx context.Context) error {
	conn, err := s.connector.Connect(ctx, s.params())
	if err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	s.close(ctx, conn)
	return nil
}

// close releases conn even if ctx is already cancelled.
func (s *Store) close(ctx context.Context, conn database.Conn) {
	if err := conn.Close(context.WithoutCancel(ctx)); err != nil {
		logger.WithRequest(ctx, s.logger).Warn("failed to close connection", zap.Error(err))
	}
}
