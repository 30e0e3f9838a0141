package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, maxAttempts int, window time.Duration) (*LoginLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLoginLimiter(client, maxAttempts, window), mr
}

func TestLoginLimiter_BlocksAfterMaxFailures(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		ok, _, err := l.Allow(ctx, "a@x.com")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
		require.NoError(t, l.RecordFailure(ctx, "a@x.com"))
	}

	ok, retryAfter, err := l.Allow(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, time.Minute)
}

func TestLoginLimiter_KeyIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, 1, time.Minute)

	require.NoError(t, l.RecordFailure(ctx, "A@X.com "))
	assert.True(t, mr.Exists("login:fail:a@x.com"))

	ok, _, err := l.Allow(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoginLimiter_WindowExpires(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, 1, time.Minute)

	require.NoError(t, l.RecordFailure(ctx, "12345678901"))
	ok, _, _ := l.Allow(ctx, "12345678901")
	assert.False(t, ok)

	mr.FastForward(61 * time.Second)

	ok, _, err := l.Allow(ctx, "12345678901")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoginLimiter_Reset(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, 1, time.Minute)

	require.NoError(t, l.RecordFailure(ctx, "a@x.com"))
	require.NoError(t, l.Reset(ctx, "a@x.com"))
	assert.False(t, mr.Exists("login:fail:a@x.com"))

	ok, _, err := l.Allow(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoginLimiter_UnavailableFailsOpen(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, 1, time.Minute)
	mr.Close()

	ok, _, err := l.Allow(ctx, "a@x.com")
	assert.Error(t, err)
	assert.True(t, ok)
}

func TestNewLoginLimiter_Defaults(t *testing.T) {
	l := NewLoginLimiter(nil, 0, 0)
	assert.EqualValues(t, defaultMaxAttempts, l.maxAttempts)
	assert.Equal(t, defaultWindow, l.window)
}
