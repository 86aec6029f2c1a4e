package db

import (
	"context"
	"time"
)

// TokenProvider abstracts cloud token acquisition for database authentication.
// The token is used as the PostgreSQL password.
type TokenProvider interface {
	// GetToken acquires a token and reports when it expires.
	GetToken(ctx context.Context) (token string, expiresOn time.Time, err error)

	// String returns a human-readable description for logging.
	// Must NOT include secrets.
	String() string
}
