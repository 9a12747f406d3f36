package auth

import (
	"context"

	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector accepts any non-empty token and uses it as the user id.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) VerifyToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, entity.ErrUnauthorized
	}

	ctxzap.Info(ctx, "[MOCK] verifying token", zap.String("user_id", token))

	return &User{ID: token, Email: token + "@example.com"}, nil
}
