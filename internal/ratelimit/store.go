package ratelimit

import (
	"context"
	"time"
)

// Window is the state of one fixed window after a Take.
type Window struct {
	Count   int
	ResetAt time.Time
	Allowed bool
}

// Store keeps fixed-window counters. Take must perform the check-and-increment atomically per key.
type Store interface {
	Take(ctx context.Context, key string, limit int, window time.Duration) (Window, error)
	Sweep(ctx context.Context) (int, error)
}
