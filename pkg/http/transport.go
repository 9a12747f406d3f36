package http

import (
	"net/http"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type payloadContextKey struct{}

var sensitiveHeaders = []string{"Authorization", "Apikey", "Cookie"}

// WithAuthToken sends token as a bearer credential unless the request already carries one.
func WithAuthToken(token string) HttpOpts {
	return WithTransport(func(next http.RoundTripper) http.RoundTripper {
		if token == "" {
			return next
		}
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("Authorization") != "" {
				return next.RoundTrip(req)
			}
			clone := req.Clone(req.Context())
			clone.Header.Set("Authorization", "Bearer "+token)
			return next.RoundTrip(clone)
		})
	})
}

// WithRequestLogging logs every outbound call at debug level with redacted headers, status and latency.
func WithRequestLogging() HttpOpts {
	return WithTransport(func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx := req.Context()
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("url", req.URL.Redacted()),
				zap.Any("headers", redactHeaders(req.Header)),
			}
			if payload, ok := ctx.Value(payloadContextKey{}).([]byte); ok {
				fields = append(fields, zap.Int("payload_bytes", len(payload)))
			}

			start := time.Now()
			resp, err := next.RoundTrip(req)
			fields = append(fields, zap.Duration("duration", time.Since(start)))
			if err != nil {
				ctxzap.Debug(ctx, "HTTP outbound request failed", append(fields, zap.Error(err))...)
				return nil, err
			}

			ctxzap.Debug(ctx, "HTTP outbound request", append(fields, zap.Int("status", resp.StatusCode))...)
			return resp, nil
		})
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func redactHeaders(h http.Header) http.Header {
	out := h.Clone()
	for _, name := range sensitiveHeaders {
		if out.Get(name) != "" {
			out.Set(name, "[REDACTED]")
		}
	}
	return out
}
