package services

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// SessionManager opens namespace-scoped database sessions.
//
// SessionManager is safe for concurrent use as long as the injected
// connectorFactory and logger are.
type SessionManager struct {
	connectorFactory func(*pgingest.ConnectionConfig) (pgingest.Connector, error)
	logger           pgingest.Logger
}

// NewSessionManager creates a new SessionManager.
//
// Panics if any dependency is nil.
func NewSessionManager(
	connectorFactory func(*pgingest.ConnectionConfig) (pgingest.Connector, error),
	logger pgingest.Logger,
) *SessionManager {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	return &SessionManager{
		connectorFactory: connectorFactory,
		logger:           logger,
	}
}

// Open connects to the database, ensures the tenant schema exists and binds
// the session's search_path to it.
//
// The tenant is validated before anything is sent to the server; an invalid
// tenant returns ErrConfig. Every other failure returns ErrSession and
// releases whatever was acquired, so no half-initialized session escapes.
//
// The caller is responsible for closing the session: defer session.Close()
func (sm *SessionManager) Open(
	ctx context.Context,
	connConfig *pgingest.ConnectionConfig,
	tenant string,
) (*pgingest.Session, error) {
	if err := pgingest.ValidateIdentifier("tenant", tenant); err != nil {
		return nil, err
	}

	pool, err := sm.connectToDatabase(ctx, connConfig)
	if err != nil {
		return nil, err
	}

	// One connection for the whole session: search_path is connection state.
	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: failed to acquire connection: %w", pgingest.ErrSession, err)
	}

	if err := bindSchema(ctx, conn, tenant); err != nil {
		conn.Release()
		pool.Close()
		return nil, err
	}

	sm.logger.Verbose("Session bound to schema %q", tenant)
	return pgingest.NewSession(pool, conn, tenant), nil
}

// connectToDatabase establishes a connection pool to the target database.
func (sm *SessionManager) connectToDatabase(
	ctx context.Context,
	connConfig *pgingest.ConnectionConfig,
) (*pgxpool.Pool, error) {
	sm.logger.Verbose("Connecting to database '%s' on %s", connConfig.Database,
		net.JoinHostPort(connConfig.Host, strconv.Itoa(connConfig.Port)))

	connector, err := sm.connectorFactory(connConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create connector: %w", pgingest.ErrSession, err)
	}

	pool, err := connector.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to database %q: %w", pgingest.ErrSession, connConfig.Database, err)
	}

	return pool, nil
}

// bindSchema creates the tenant schema if needed and makes it the only entry
// of search_path.
func bindSchema(ctx context.Context, q pgingest.Querier, tenant string) error {
	schema := pgx.Identifier{tenant}.Sanitize()

	if _, err := q.Exec(ctx, fmt.Sprintf(queryCreateSchema, schema)); err != nil {
		return fmt.Errorf("%w: failed to create schema %s: %w", pgingest.ErrSession, schema, err)
	}
	if _, err := q.Exec(ctx, fmt.Sprintf(querySetSearchPath, schema)); err != nil {
		return fmt.Errorf("%w: failed to set search_path to %s: %w", pgingest.ErrSession, schema, err)
	}
	return nil
}
