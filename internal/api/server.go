package api

import (
	"encoding/json"
	"net/http"

	adminapi "github.com/futig/foodsafety-backend/internal/api/admin"
	chatapi "github.com/futig/foodsafety-backend/internal/api/chat"
	"github.com/futig/foodsafety-backend/internal/api/docs"
	documentapi "github.com/futig/foodsafety-backend/internal/api/document"
	"github.com/futig/foodsafety-backend/internal/api/middleware"
	"github.com/futig/foodsafety-backend/internal/config"
	"github.com/futig/foodsafety-backend/internal/metrics"
	"github.com/futig/foodsafety-backend/internal/ratelimit"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Handlers groups the route handlers mounted by SetupRouter.
type Handlers struct {
	Chat     *chatapi.Handler
	Document *documentapi.Handler
	Admin    *adminapi.Handler
}

// SetupRouter creates and configures the HTTP router
func SetupRouter(
	handlers Handlers,
	verifier middleware.TokenVerifier,
	limiter middleware.RateLimiter,
	registry *metrics.Registry,
	cfg *config.Config,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)                   // Recover from panics
	r.Use(chimiddleware.RequestID)                   // Add request ID
	r.Use(middleware.Logger(logger, registry))       // Log requests and record metrics
	r.Use(middleware.CORS)                           // Handle CORS
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout)) // Bound every request

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": registry.Snapshot().Status})
	})

	// Swagger documentation endpoints
	docs.RegisterRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(verifier))

		chatapi.RegisterRoutes(r, handlers.Chat, middleware.RateLimit(limiter, ratelimit.ActionChat, nil))

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminOnly(cfg.AdminUserIDs))
			documentapi.RegisterRoutes(r, handlers.Document)
			adminapi.RegisterRoutes(r, handlers.Admin)
		})
	})

	return r
}
