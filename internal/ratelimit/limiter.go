package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	DefaultMaxRequests = 10
	DefaultWindow      = 60 * time.Second

	ActionChat = "chat"
)

// Limiter admits at most maxRequests per user and action within each window.
type Limiter struct {
	store       Store
	maxRequests int
	window      time.Duration
}

func NewLimiter(store Store, maxRequests int, window time.Duration) *Limiter {
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{store: store, maxRequests: maxRequests, window: window}
}

func (l *Limiter) CheckLimit(ctx context.Context, userID, action string) (entity.RateLimitDecision, error) {
	w, err := l.store.Take(ctx, action+":"+userID, l.maxRequests, l.window)
	if err != nil {
		return entity.RateLimitDecision{}, fmt.Errorf("check rate limit: %w", err)
	}

	remaining := l.maxRequests - w.Count
	if !w.Allowed || remaining < 0 {
		remaining = 0
	}

	decision := entity.RateLimitDecision{
		Allowed:   w.Allowed,
		Limit:     l.maxRequests,
		Remaining: remaining,
		ResetAt:   w.ResetAt,
	}

	if !decision.Allowed {
		ctxzap.Info(ctx, "rate limit exceeded",
			zap.String("user_id", userID),
			zap.String("limit_action", action),
			zap.Time("reset_at", decision.ResetAt),
		)
	}

	return decision, nil
}

func (l *Limiter) Limit() int {
	return l.maxRequests
}
