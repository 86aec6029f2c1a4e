package retry

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes for transient conditions
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgCodeSerializationFailure = "40001"
	pgCodeDeadlockDetected     = "40P01"
	pgCodeLockNotAvailable     = "55P03"
)

// transientPgClasses are SQLSTATE classes that are always retryable:
// 08 connection exception, 53 insufficient resources, 57 operator intervention.
var transientPgClasses = []string{"08", "53", "57"}

// transientMessages are lowercase fragments of errors raised before a
// PostgreSQL error code is available.
var transientMessages = []string{
	"connection refused",
	"connection reset",
	"connection timeout",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"broken pipe",
	"too many connections",
	"server closed the connection",
	"unexpected eof",
}

// ClassifierFunc adapts a plain function to the ErrorClassifier interface.
type ClassifierFunc func(err error) bool

// IsTransient calls f(err).
func (f ClassifierFunc) IsTransient(err error) bool {
	return err != nil && f(err)
}

// PostgreSQLErrorClassifier implements ErrorClassifier for PostgreSQL-specific errors.
type PostgreSQLErrorClassifier struct{}

// NewPostgreSQLErrorClassifier creates a new PostgreSQL error classifier.
func NewPostgreSQLErrorClassifier() *PostgreSQLErrorClassifier {
	return &PostgreSQLErrorClassifier{}
}

// IsTransient determines if an error is temporary and retryable.
func (c *PostgreSQLErrorClassifier) IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isTransientPgCode(pgErr.Code)
	}

	if isTransientNetworkError(err) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range transientMessages {
		if strings.Contains(msg, fragment) {
			return true
		}
	}

	return false
}

func isTransientPgCode(code string) bool {
	for _, class := range transientPgClasses {
		if strings.HasPrefix(code, class) {
			return true
		}
	}

	switch code {
	case pgCodeSerializationFailure, pgCodeDeadlockDetected, pgCodeLockNotAvailable:
		return true
	}
	return false
}

func isTransientNetworkError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() || dnsErr.Timeout()
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return true
		}
		return errors.Is(opErr.Err, syscall.ECONNREFUSED) ||
			errors.Is(opErr.Err, syscall.ECONNRESET) ||
			errors.Is(opErr.Err, syscall.ENETUNREACH) ||
			errors.Is(opErr.Err, syscall.EHOSTUNREACH)
	}

	return false
}
