package retry

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
)

type RetryConfig struct {
	Attempts uint          `env:"ATTEMPTS" envDefault:"3"`
	Delay    time.Duration `env:"DELAY" envDefault:"200ms"`
	MaxDelay time.Duration `env:"MAX_DELAY" envDefault:"2s"`
}

func (rc *RetryConfig) ToRetryOptions() []retry.Option {
	attempts := rc.Attempts
	if attempts == 0 {
		attempts = 1
	}
	return []retry.Option{
		retry.Attempts(attempts),
		retry.MaxDelay(rc.MaxDelay),
		retry.Delay(rc.Delay),
		retry.LastErrorOnly(true),
	}
}

// Do runs fn with the configured backoff. Context cancellation and deadlines are never retried.
func Do(ctx context.Context, rc RetryConfig, fn func() error, opts ...retry.Option) error {
	options := append(rc.ToRetryOptions(),
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
	)
	options = append(options, opts...)
	return retry.Do(fn, options...)
}
