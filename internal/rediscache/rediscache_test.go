package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCache dials a local Redis instance and skips the test if one
// isn't reachable; there's no in-process fake for go-redis in this
// module's dependency set, so these run as opt-in integration tests.
func newTestCache(t *testing.T) *Cache {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379", DB: 15})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable at 127.0.0.1:6379: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return New(client, time.Minute)
}

type cachedEntry struct {
	RaceID string  `json:"race_id"`
	Score  float64 `json:"score"`
}

func TestGet_MissReturnsFalseWithNoError(t *testing.T) {
	c := newTestCache(t)

	var dest cachedEntry
	found, err := c.Get(context.Background(), "no-such-key", &dest)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSetThenGet_RoundTripsTheValue(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	want := cachedEntry{RaceID: "r1", Score: 87.5}
	require.NoError(t, c.Set(ctx, "race:r1", want))

	var got cachedEntry
	found, err := c.Get(ctx, "race:r1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)
}
