// Package testtools provides in-memory stand-ins for the database layer.
package testtools

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/alfagnish/users-service/internal/database"
)

// Rows is an in-memory pgx.Rows.
type Rows struct {
	columns []string
	data    [][]any
	err     error

	idx    int
	closed bool
}

// NewRows builds a result set with the given column names and row values.
func NewRows(columns []string, data ...[]any) *Rows {
	return &Rows{columns: columns, data: data, idx: -1}
}

// WithErr makes Err report err once iteration finishes.
func (r *Rows) WithErr(err error) *Rows {
	r.err = err
	return r
}

func (r *Rows) clone() *Rows {
	return &Rows{columns: r.columns, data: r.data, err: r.err, idx: -1}
}

func (r *Rows) Close() { r.closed = true }

func (r *Rows) Err() error { return r.err }

func (r *Rows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT") }

func (r *Rows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.columns))
	for i, c := range r.columns {
		fds[i] = pgconn.FieldDescription{Name: c}
	}
	return fds
}

func (r *Rows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	if r.idx >= len(r.data) {
		r.closed = true
		return false
	}
	return true
}

func (r *Rows) Scan(dest ...any) error {
	return errors.New("testtools: Scan is not supported, use Values")
}

func (r *Rows) Values() ([]any, error) {
	if r.idx < 0 || r.idx >= len(r.data) {
		return nil, errors.New("testtools: no current row")
	}
	return r.data[r.idx], nil
}

func (r *Rows) RawValues() [][]byte { return nil }

func (r *Rows) Conn() *pgx.Conn { return nil }

// Connector is a database.Connector that counts sessions.
type Connector struct {
	Rows       *Rows
	ConnectErr error
	QueryErr   error
	CloseErr   error

	mu         sync.Mutex
	opened     int
	closed     int
	lastParams database.Params
	queries    []string
}

// Connect implements database.Connector.
func (c *Connector) Connect(ctx context.Context, p database.Params) (database.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastParams = p
	if c.ConnectErr != nil {
		return nil, c.ConnectErr
	}
	c.opened++
	return &conn{parent: c}, nil
}

// Opened returns how many sessions were opened.
func (c *Connector) Opened() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened
}

// Closed returns how many sessions were closed.
func (c *Connector) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// LastParams returns the parameters of the most recent Connect call.
func (c *Connector) LastParams() database.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastParams
}

// Queries returns every SQL statement issued so far.
func (c *Connector) Queries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.queries...)
}

type conn struct {
	parent *Connector
	done   bool
}

func (c *conn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.parent.mu.Lock()
	defer c.parent.mu.Unlock()

	c.parent.queries = append(c.parent.queries, sql)
	if c.parent.QueryErr != nil {
		return nil, c.parent.QueryErr
	}
	if c.parent.Rows == nil {
		return NewRows(nil), nil
	}
	return c.parent.Rows.clone(), nil
}

func (c *conn) Close(ctx context.Context) error {
	c.parent.mu.Lock()
	defer c.parent.mu.Unlock()

	if !c.done {
		c.done = true
		c.parent.closed++
	}
	return c.parent.CloseErr
}
