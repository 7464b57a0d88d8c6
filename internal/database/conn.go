package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/alfagnish/users-service/internal/metrics"
)

// Conn is a single database session. *pgx.Conn satisfies it.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close(ctx context.Context) error
}

// Connector opens sessions. Every successful Connect must be paired with
// a Close on the returned Conn.
type Connector interface {
	Connect(ctx context.Context, p Params) (Conn, error)
}

// PgxConnector opens one unpooled pgx connection per call.
type PgxConnector struct {
	logger *zap.Logger
	tracer pgx.QueryTracer
}

// NewPgxConnector creates a PgxConnector. tracer may be nil.
func NewPgxConnector(logger *zap.Logger, tracer pgx.QueryTracer) *PgxConnector {
	return &PgxConnector{logger: logger, tracer: tracer}
}

// Connect implements Connector.
func (c *PgxConnector) Connect(ctx context.Context, p Params) (Conn, error) {
	cfg, err := pgx.ParseConfig(p.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse db config: %w", err)
	}
	if c.tracer != nil {
		cfg.Tracer = c.tracer
	}

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", p.Redacted(), err)
	}
	metrics.DBConnectionsOpened.Inc()
	c.logger.Debug("PostgreSQL connection opened",
		zap.String("host", p.Host),
		zap.String("port", p.Port),
		zap.String("db", p.Name),
	)

	return &countedConn{Conn: conn}, nil
}

type countedConn struct {
	*pgx.Conn
}

func (c *countedConn) Close(ctx context.Context) error {
	metrics.DBConnectionsClosed.Inc()
	return c.Conn.Close(ctx)
}
