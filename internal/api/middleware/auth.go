package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/futig/foodsafety-backend/internal/integration/auth"
	"github.com/futig/foodsafety-backend/internal/pkg/logger"
	"github.com/futig/foodsafety-backend/internal/pkg/response"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*auth.User, error)
}

type userIDKey struct{}

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the id stored by Auth, or "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

// Auth requires a bearer token accepted by the auth service.
func Auth(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := bearerToken(r)
			if !ok {
				ctxzap.Info(ctx, "request without bearer token")
				response.Error(w, http.StatusUnauthorized, "missing or malformed authorization header", "")
				return
			}

			user, err := verifier.VerifyToken(ctx, token)
			if err != nil {
				if errors.Is(err, entity.ErrUnauthorized) {
					ctxzap.Info(ctx, "token rejected", zap.Error(err))
					response.Error(w, http.StatusUnauthorized, "invalid or expired token", "")
					return
				}
				ctxzap.Error(ctx, "token verification failed", zap.Error(err))
				response.Error(w, http.StatusBadGateway, "authentication service unavailable", "")
				return
			}

			ctx = logger.AddFields(WithUserID(ctx, user.ID), zap.String("user_id", user.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
