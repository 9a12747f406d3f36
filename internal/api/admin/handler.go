package admin

import (
	"encoding/json"
	"net/http"

	"github.com/futig/foodsafety-backend/internal/metrics"
	"github.com/futig/foodsafety-backend/internal/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Handler struct {
	registry *metrics.Registry
}

func NewHandler(registry *metrics.Registry) *Handler {
	return &Handler{registry: registry}
}

// GetMetrics handles GET /api/admin/metrics
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "GetMetrics")

	snap := h.registry.Snapshot()
	ctxzap.Debug(ctx, "metrics snapshot", zap.String("status", snap.Status), zap.Int64("total_requests", snap.TotalRequests))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(snap)
}

// RegisterRoutes registers admin routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/api/admin/metrics", h.GetMetrics)
}
