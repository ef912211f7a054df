package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_AllowsSuccessfulCallsInClosedState(t *testing.T) {
	g := NewGuard("test", Config{MaxRequests: 2, Interval: time.Minute, Timeout: time.Minute, ConsecutiveFailures: 3, RPS: 1000, Burst: 1000})

	for i := 0; i < 5; i++ {
		result, err := Do(context.Background(), g, func(_ context.Context) (int, error) { return 42, nil })
		require.NoError(t, err)
		assert.Equal(t, 42, result)
	}
	assert.Equal(t, "closed", g.State())
}

func TestGuard_OpensAfterConsecutiveFailures(t *testing.T) {
	g := NewGuard("test", Config{MaxRequests: 1, Interval: time.Minute, Timeout: time.Hour, ConsecutiveFailures: 3, RPS: 1000, Burst: 1000})

	failing := func(_ context.Context) (int, error) { return 0, errors.New("boom") }
	for i := 0; i < 3; i++ {
		_, err := Do(context.Background(), g, failing)
		assert.Error(t, err)
	}

	assert.Equal(t, "open", g.State())
	assert.Equal(t, 1, g.Trips())

	_, err := Do(context.Background(), g, func(_ context.Context) (int, error) { return 1, nil })
	assert.Error(t, err, "an open breaker should reject without calling fn")
}

func TestGuard_RateLimitRejectsBeyondBurst(t *testing.T) {
	g := NewGuard("test", Config{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, ConsecutiveFailures: 10, RPS: 0.001, Burst: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Do(ctx, g, func(_ context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	_, err = Do(ctx, g, func(_ context.Context) (int, error) { return 1, nil })
	assert.Error(t, err, "second call exceeds burst and the context deadline is too short to wait out the refill")
}
