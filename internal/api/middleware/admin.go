package middleware

import (
	"net/http"

	"github.com/futig/foodsafety-backend/internal/pkg/response"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
)

// AdminOnly lets through users listed in ADMIN_USER_IDS. It must run after Auth.
func AdminOnly(adminIDs []string) func(next http.Handler) http.Handler {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		if id != "" {
			admins[id] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := admins[UserIDFromContext(r.Context())]; !ok {
				ctxzap.Warn(r.Context(), "admin route denied")
				response.Error(w, http.StatusForbidden, "admin access required", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
