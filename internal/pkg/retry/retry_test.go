package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), RetryConfig{Attempts: 3, Delay: time.Millisecond, MaxDelay: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_DeadlineIsNotRetried(t *testing.T) {
	calls := 0
	err := Do(context.Background(), RetryConfig{Attempts: 5, Delay: time.Millisecond, MaxDelay: time.Millisecond}, func() error {
		calls++
		return context.DeadlineExceeded
	})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}

func TestToRetryOptions_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := Do(context.Background(), RetryConfig{}, func() error {
		calls++
		return errors.New("down")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
