package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/futig/foodsafety-backend/internal/config"
	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/futig/foodsafety-backend/internal/integration/common"
	pkghttp "github.com/futig/foodsafety-backend/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// User is the identity behind a verified session token.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Connector verifies session tokens against the external auth service.
type Connector struct {
	config    config.AuthConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(
	cfg config.AuthConfig,
	logger *zap.Logger,
) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
	}
}

// VerifyToken resolves token to a user or returns entity.ErrUnauthorized.
func (c *Connector) VerifyToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, entity.ErrUnauthorized
	}

	opts := []pkghttp.RequestOpt{pkghttp.WithHeader("Authorization", "Bearer "+token)}
	if c.config.APIKey != "" {
		opts = append(opts, pkghttp.WithHeader("apikey", c.config.APIKey))
	}

	var user User
	err := c.connector.DoRequest(ctx, http.MethodGet, c.config.UserEndpoint, nil, &user, opts...)
	if err != nil {
		if pkghttp.HasStatus(err, http.StatusUnauthorized, http.StatusForbidden) {
			return nil, fmt.Errorf("%w: token rejected", entity.ErrUnauthorized)
		}
		return nil, fmt.Errorf("verify token: %w", err)
	}

	if user.ID == "" {
		return nil, fmt.Errorf("%w: auth service returned no user id", entity.ErrUnauthorized)
	}

	ctxzap.Debug(ctx, "token verified", zap.String("user_id", user.ID))

	return &user, nil
}
