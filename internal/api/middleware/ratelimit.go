package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/futig/foodsafety-backend/internal/pkg/response"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type RateLimiter interface {
	CheckLimit(ctx context.Context, userID, action string) (entity.RateLimitDecision, error)
}

type decisionKey struct{}

// DecisionFromContext returns the rate-limit decision made for this request.
func DecisionFromContext(ctx context.Context) (entity.RateLimitDecision, bool) {
	d, ok := ctx.Value(decisionKey{}).(entity.RateLimitDecision)
	return d, ok
}

// RateLimit admits a bounded number of requests per user and action. It must run after Auth.
// A failing limiter store does not block traffic.
func RateLimit(limiter RateLimiter, action string, now func() time.Time) func(next http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			decision, err := limiter.CheckLimit(ctx, UserIDFromContext(ctx), action)
			if err != nil {
				ctxzap.Error(ctx, "rate limiter unavailable, admitting request", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			SetRateLimitHeaders(w, decision.Limit, decision.Remaining, decision.ResetAt)

			if !decision.Allowed {
				WriteLimitExceeded(w, "Too many requests. Please wait before sending another message.",
					decision.ResetAt, now())
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, decisionKey{}, decision)))
		})
	}
}

func SetRateLimitHeaders(w http.ResponseWriter, limit, remaining int, resetAt time.Time) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

// WriteLimitExceeded writes a 429 with Retry-After in whole seconds, at least one.
func WriteLimitExceeded(w http.ResponseWriter, message string, resetAt, now time.Time) {
	retryAfter := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	response.JSON(w, http.StatusTooManyRequests, entity.RateLimitErrorResponse{
		Error:             http.StatusText(http.StatusTooManyRequests),
		Message:           message,
		RemainingRequests: 0,
		ResetTime:         resetAt.UTC(),
		RetryAfter:        retryAfter,
	})
}
