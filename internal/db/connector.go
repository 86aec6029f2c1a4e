package db

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/pgingest/internal/logging"
	"github.com/vvka-141/pgingest/internal/retry"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// Connection pool configuration constants
const (
	// DefaultMaxConns is small: a run holds one dedicated connection for the
	// whole import and never fans out.
	DefaultMaxConns = 2

	// DefaultMinConns maintains at least one connection in the pool.
	DefaultMinConns = 1

	// DefaultMaxConnIdleTime keeps the session connection alive while a large
	// import runs server-side.
	DefaultMaxConnIdleTime = 30 * time.Minute
)

func configurePool(poolConfig *pgxpool.Config, logger pgingest.Logger) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		logger.Verbose("%s: %s", notice.Severity, notice.Message)
	}
}

func newConnectExecutor(logger pgingest.Logger) *retry.Executor {
	classifier := retry.NewPostgreSQLErrorClassifier()
	strategy := retry.NewExponentialBackoff(pgingest.DefaultRetryMaxAttempts,
		retry.WithInitialDelay(pgingest.DefaultRetryInitialDelay),
		retry.WithMaxDelay(pgingest.DefaultRetryMaxDelay),
	)

	return retry.NewExecutor(classifier, strategy).
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			logger.Verbose("Connection attempt %d failed, retrying in %v: %v", attempt+1, delay, err)
		})
}

// StandardConnector implements the Connector interface for standard
// username/password authentication with automatic retry on transient failures.
type StandardConnector struct {
	config        *pgingest.ConnectionConfig
	logger        pgingest.Logger
	retryExecutor *retry.Executor
}

// NewStandardConnector creates a new StandardConnector with the given configuration.
// Retry behavior uses pgingest defaults: DefaultRetryMaxAttempts attempts,
// exponential backoff starting at DefaultRetryInitialDelay, max DefaultRetryMaxDelay.
// A nil logger discards notices and retry diagnostics.
func NewStandardConnector(config *pgingest.ConnectionConfig, logger pgingest.Logger) *StandardConnector {
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	return &StandardConnector{
		config:        config,
		logger:        logger,
		retryExecutor: newConnectExecutor(logger),
	}
}

// Connect establishes a connection pool using standard authentication with automatic retry.
func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	return connectWithRetry(ctx, c.retryExecutor, c.config, c.logger, func(context.Context) (string, error) {
		return BuildConnectionString(c.config), nil
	})
}

// connectWithRetry opens and pings a pool, rebuilding the connection string
// on every attempt so token-based connectors can refresh credentials.
func connectWithRetry(
	ctx context.Context,
	executor *retry.Executor,
	config *pgingest.ConnectionConfig,
	logger pgingest.Logger,
	connString func(ctx context.Context) (string, error),
) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool

	err := executor.Execute(ctx, func(ctx context.Context) error {
		connStr, err := connString(ctx)
		if err != nil {
			return err
		}

		poolConfig, err := pgxpool.ParseConfig(connStr)
		if err != nil {
			return fmt.Errorf("failed to parse connection config: %w", err)
		}

		configurePool(poolConfig, logger)

		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return wrapConnectionError(err, config.Host, config.Port, config.Database)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			pool = nil
			return wrapConnectionError(err, config.Host, config.Port, config.Database)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return pool, nil
}

// NewConnector is a factory function that creates the appropriate Connector
// based on the ConnectionConfig's AuthMethod.
func NewConnector(config *pgingest.ConnectionConfig, logger pgingest.Logger) (pgingest.Connector, error) {
	switch config.AuthMethod {
	case pgingest.AuthMethodStandard:
		return NewStandardConnector(config, logger), nil
	case pgingest.AuthMethodAWSIAM:
		return newAWSConnector(config, logger)
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, pgingest.ErrConfig)
	}
}

// newAWSConnector creates a token-based connector with the RDS IAM token provider.
func newAWSConnector(config *pgingest.ConnectionConfig, logger pgingest.Logger) (pgingest.Connector, error) {
	endpoint := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))

	tokenProvider, err := NewAWSIAMTokenProvider(endpoint, config.AWSRegion, config.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS IAM token provider: %v: %w", err, pgingest.ErrConfig)
	}

	return NewTokenBasedConnector(config, tokenProvider, "AWS IAM", logger), nil
}

// wrapConnectionError wraps raw pgx connection errors with actionable guidance.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`connection refused to %s

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong DB_HOST or DB_PORT
  - Security group or firewall blocking the connection

Original error: %w`, addr, host, port, err)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		return fmt.Errorf(`cannot resolve host "%s"

Possible causes:
  - DB_HOST is misspelled
  - DNS is not configured or reachable
  - Network connection issue

Original error: %w`, host, err)

	case strings.Contains(errStr, "pam authentication failed"):
		return fmt.Errorf(`IAM authentication failed for database "%s"

Possible causes:
  - The database user is not granted rds_iam
  - The AWS principal lacks rds-db:connect for this user
  - DB_USER does not match the IAM-enabled role

Original error: %w`, database, err)

	case strings.Contains(errStr, "password authentication failed"):
		return fmt.Errorf(`password authentication failed for database "%s"

Possible causes:
  - Wrong DB_PASSWORD
  - Wrong DB_USER
  - User does not have access to the database

Original error: %w`, database, err)

	case strings.Contains(errStr, "does not exist"):
		return fmt.Errorf(`database "%s" does not exist

To create it:
  createdb %s

Original error: %w`, database, database, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf(`connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Network latency or packet loss
  - Firewall silently dropping packets
  - Wrong host/port (server not listening)

Original error: %w`, addr, err)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		return fmt.Errorf(`SSL/TLS connection error

Possible causes:
  - Server requires SSL but DB_SSLMODE is wrong
  - Certificate verification failed (try DB_SSLMODE=require)

Original error: %w`, err)

	case strings.Contains(errStr, "too many connections"):
		return fmt.Errorf(`too many connections to database "%s"

Possible causes:
  - Connection pool exhausted on server
  - max_connections limit reached
  - Stale connections from previous runs

Try: SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = '%s';

Original error: %w`, database, database, err)

	default:
		return fmt.Errorf("failed to connect to database: %w", err)
	}
}
