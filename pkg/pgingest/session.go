package pgingest

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the statement surface shared by a session connection and a
// transaction opened on it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ScopedSession is a database connection whose search_path is bound to a
// single tenant schema for its lifetime.
type ScopedSession interface {
	Querier

	// Schema returns the tenant schema the session resolves names in.
	Schema() string

	// InTx runs fn inside one transaction on the session connection.
	// The transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(q Querier) error) error
}

// Session encapsulates a namespace-scoped database session: the pool it was
// acquired from and the single connection whose search_path is set.
//
// Session manages the lifecycle of database resources (pool and connection)
// and ensures proper cleanup through a single Close() method.
//
// Thread-Safety: NOT safe for concurrent use.
//
// Example usage:
//
//	session, err := sessionManager.Open(ctx, connConfig, "tenant_a")
//	if err != nil {
//	    return err
//	}
//	defer session.Close()
type Session struct {
	pool   *pgxpool.Pool
	conn   *pgxpool.Conn
	schema string
}

// NewSession creates a new Session instance.
// This is intended to be called by SessionManager, not by external code.
//
// Panics if pool or conn is nil (programmer error).
func NewSession(pool *pgxpool.Pool, conn *pgxpool.Conn, schema string) *Session {
	if pool == nil {
		panic("pool cannot be nil")
	}
	if conn == nil {
		panic("conn cannot be nil")
	}

	return &Session{
		pool:   pool,
		conn:   conn,
		schema: schema,
	}
}

// Schema returns the tenant schema bound to the session.
func (s *Session) Schema() string {
	return s.schema
}

// Exec executes a statement on the session connection.
func (s *Session) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return s.conn.Exec(ctx, sql, args...)
}

// QueryRow executes a query expected to return at most one row.
func (s *Session) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return s.conn.QueryRow(ctx, sql, args...)
}

// InTx runs fn inside a single transaction on the session connection.
func (s *Session) InTx(ctx context.Context, fn func(q Querier) error) error {
	return pgx.BeginFunc(ctx, s.conn, func(tx pgx.Tx) error {
		return fn(tx)
	})
}

// Close releases all resources associated with the session.
// This method is idempotent and safe to call multiple times.
//
// Resource cleanup order:
//  1. Release the acquired connection back to the pool
//  2. Close the connection pool
func (s *Session) Close() error {
	if s.conn != nil {
		s.conn.Release()
		s.conn = nil
	}

	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}

	return nil
}

var _ ScopedSession = (*Session)(nil)
