package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/pgingest/internal/logging"
	"github.com/vvka-141/pgingest/internal/retry"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// tokenExpiryWarning is the remaining lifetime below which a fresh token is
// reported as about to expire.
const tokenExpiryWarning = 5 * time.Minute

// TokenBasedConnector implements the Connector interface for cloud providers
// that authenticate via short-lived tokens (RDS IAM).
// The token is acquired from a TokenProvider and used as the PostgreSQL password.
type TokenBasedConnector struct {
	config        *pgingest.ConnectionConfig
	tokenProvider TokenProvider
	retryExecutor *retry.Executor
	providerName  string
	logger        pgingest.Logger
}

// NewTokenBasedConnector creates a connector that uses a TokenProvider for authentication.
// providerName is used in error/warning messages (e.g., "AWS IAM").
func NewTokenBasedConnector(config *pgingest.ConnectionConfig, tokenProvider TokenProvider, providerName string, logger pgingest.Logger) *TokenBasedConnector {
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		retryExecutor: newConnectExecutor(logger),
		providerName:  providerName,
		logger:        logger,
	}
}

func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	c.logger.Verbose("Authenticating with %s", c.tokenProvider)

	return connectWithRetry(ctx, c.retryExecutor, c.config, c.logger, func(ctx context.Context) (string, error) {
		token, expiresOn, err := c.tokenProvider.GetToken(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to acquire %s token: %w", c.providerName, err)
		}

		if remaining := time.Until(expiresOn); remaining < tokenExpiryWarning {
			c.logger.Info("Warning: %s token expires in %v", c.providerName, remaining.Round(time.Second))
		}

		configWithToken := *c.config
		configWithToken.Password = token

		return BuildConnectionString(&configWithToken), nil
	})
}
