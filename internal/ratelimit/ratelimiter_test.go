package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRateLimiter_AllowWithDetails(t *testing.T) {
	t.Run("allows requests within limit", func(t *testing.T) {
		client, mr := setupTestRedis(t)
		defer mr.Close()
		defer client.Close()

		limiter := NewRateLimiter(client)
		ctx := context.Background()

		apiKeyID := "caller-1"
		limit := 5

		// Make 5 requests - should all be allowed
		for i := 0; i < 5; i++ {
			allowed, remaining, resetAt, err := limiter.AllowWithDetails(ctx, apiKeyID, limit)
			require.NoError(t, err)
			assert.True(t, allowed)
			assert.Equal(t, limit-i-1, remaining)
			assert.False(t, resetAt.IsZero())
		}
	})

	t.Run("blocks requests over limit", func(t *testing.T) {
		client, mr := setupTestRedis(t)
		defer mr.Close()
		defer client.Close()

		limiter := NewRateLimiter(client)
		ctx := context.Background()

		apiKeyID := "test-key-2"
		limit := 3

		// Make 3 requests - should all be allowed
		for i := 0; i < 3; i++ {
			allowed, _, _, err := limiter.AllowWithDetails(ctx, apiKeyID, limit)
			require.NoError(t, err)
			assert.True(t, allowed)
		}

		// 4th request should be blocked
		allowed, remaining, resetAt, err := limiter.AllowWithDetails(ctx, apiKeyID, limit)
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Equal(t, 0, remaining)
		assert.False(t, resetAt.IsZero())
	})

	t.Run("unlimited when limit is 0", func(t *testing.T) {
		client, mr := setupTestRedis(t)
		defer mr.Close()
		defer client.Close()

		limiter := NewRateLimiter(client)
		ctx := context.Background()

		apiKeyID := "test-key-unlimited"
		limit := 0

		// Make many requests - should all be allowed
		for i := 0; i < 100; i++ {
			allowed, remaining, resetAt, err := limiter.AllowWithDetails(ctx, apiKeyID, limit)
			require.NoError(t, err)
			assert.True(t, allowed)
			assert.Equal(t, -1, remaining) // -1 indicates unlimited
			assert.True(t, resetAt.IsZero())
		}
	})

	t.Run("resets after window expires", func(t *testing.T) {
		client, mr := setupTestRedis(t)
		defer mr.Close()
		defer client.Close()

		limiter := NewRateLimiter(client)
		ctx := context.Background()

		apiKeyID := "test-key-window"
		limit := 2

		// Use up the limit
		allowed, _, _, err := limiter.AllowWithDetails(ctx, apiKeyID, limit)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, _, _, err = limiter.AllowWithDetails(ctx, apiKeyID, limit)
		require.NoError(t, err)
		assert.True(t, allowed)

		// Should be blocked
		allowed, _, _, err = limiter.AllowWithDetails(ctx, apiKeyID, limit)
		require.NoError(t, err)
		assert.False(t, allowed)

		// Reset the limiter (simulates window expiry)
		err = limiter.Reset(ctx, apiKeyID)
		require.NoError(t, err)

		// Should be allowed again after reset
		allowed, remaining, _, err := limiter.AllowWithDetails(ctx, apiKeyID, limit)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, limit-1, remaining)
	})
}

func TestRateLimiter_GetCurrentUsage(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	limiter := NewRateLimiter(client)
	ctx := context.Background()

	apiKeyID := "test-usage"
	limit := 10

	// Initially should be 0
	usage, err := limiter.GetCurrentUsage(ctx, apiKeyID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), usage)

	// Make 3 requests
	for i := 0; i < 3; i++ {
		_, _, _, err := limiter.AllowWithDetails(ctx, apiKeyID, limit)
		require.NoError(t, err)
	}

	// Should show 3 requests
	usage, err = limiter.GetCurrentUsage(ctx, apiKeyID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), usage)
}

func TestRateLimiter_Reset(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	limiter := NewRateLimiter(client)
	ctx := context.Background()

	apiKeyID := "test-reset"
	limit := 2

	// Use up the limit
	for i := 0; i < 2; i++ {
		allowed, _, _, err := limiter.AllowWithDetails(ctx, apiKeyID, limit)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	// Should be blocked
	allowed, _, _, err := limiter.AllowWithDetails(ctx, apiKeyID, limit)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Reset the limiter
	err = limiter.Reset(ctx, apiKeyID)
	require.NoError(t, err)

	// Should be allowed again
	allowed, remaining, _, err := limiter.AllowWithDetails(ctx, apiKeyID, limit)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, limit-1, remaining)
}

func TestNoopLimiter(t *testing.T) {
	limiter := NewNoopLimiter()
	ctx := context.Background()

	// Should always allow
	for i := 0; i < 100; i++ {
		allowed := limiter.Allow(ctx, "any-key")
		assert.True(t, allowed)
	}
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewRateLimiter(client)
	limiter.now = clock.Now
	ctx := context.Background()

	allowed, _, resetAt, err := limiter.AllowWithDetails(ctx, "win", 2)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, clock.t.Add(Window), resetAt)

	clock.Advance(30 * time.Second)
	allowed, remaining, _, err := limiter.AllowWithDetails(ctx, "win", 2)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 0, remaining)

	clock.Advance(20 * time.Second)
	allowed, _, resetAt, err = limiter.AllowWithDetails(ctx, "win", 2)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, time.Date(2025, 1, 1, 12, 1, 0, 0, time.UTC), resetAt)

	// Denied requests are not counted, so the first request leaves the
	// window after 60s and one slot opens.
	clock.Advance(11 * time.Second)
	allowed, _, _, err = limiter.AllowWithDetails(ctx, "win", 2)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiter_RedisError(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer client.Close()
	mr.Close()

	_, _, _, err := NewRateLimiter(client).AllowWithDetails(context.Background(), "k", 5)
	assert.Error(t, err)
}

func TestLocalLimiter(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewLocalLimiter()
	limiter.now = clock.Now
	ctx := context.Background()

	t.Run("burst up to the limit", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			allowed, remaining, _, err := limiter.AllowWithDetails(ctx, "local", 3)
			require.NoError(t, err)
			assert.True(t, allowed)
			assert.Equal(t, 3-i-1, remaining)
		}

		allowed, remaining, resetAt, err := limiter.AllowWithDetails(ctx, "local", 3)
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Equal(t, 0, remaining)
		assert.True(t, resetAt.After(clock.t))
	})

	t.Run("refills over time", func(t *testing.T) {
		clock.Advance(20 * time.Second)
		allowed, _, _, err := limiter.AllowWithDetails(ctx, "local", 3)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("keys are independent", func(t *testing.T) {
		allowed, _, _, err := limiter.AllowWithDetails(ctx, "other", 3)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("unlimited", func(t *testing.T) {
		allowed, remaining, resetAt, err := limiter.AllowWithDetails(ctx, "local", 0)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, -1, remaining)
		assert.True(t, resetAt.IsZero())
	})

	t.Run("idle keys are evicted", func(t *testing.T) {
		require.Equal(t, 2, limiter.Len())
		clock.Advance(time.Hour)
		_, _, _, err := limiter.AllowWithDetails(ctx, "fresh", 3)
		require.NoError(t, err)
		assert.Equal(t, 1, limiter.Len())
	})
}

func TestNoopLimiterDetails(t *testing.T) {
	var l Limiter = NewNoopLimiter()
	allowed, remaining, resetAt, err := l.AllowWithDetails(context.Background(), "k", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, -1, remaining)
	assert.True(t, resetAt.IsZero())
}
