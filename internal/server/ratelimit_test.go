package server

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clock is a settable time source for the limiter.
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(perMinute, perHour, perDay int, dataPerDay int64) (*RateLimiter, *clock) {
	c := &clock{t: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(perMinute, perHour, perDay, dataPerDay)
	rl.now = c.now
	return rl, c
}

func TestRateLimiter_Minute(t *testing.T) {
	rl, c := newTestLimiter(2, 0, 0, 0)

	require.NoError(t, rl.CheckRateLimit("a", 0))
	require.NoError(t, rl.CheckRateLimit("a", 0))

	err := rl.CheckRateLimit("a", 0)
	var rle *RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "minute", rle.Type)
	assert.Equal(t, 2, rle.Limit)
	assert.Equal(t, time.Minute, rle.RetryAfter)

	c.advance(30 * time.Second)
	err = rl.CheckRateLimit("a", 0)
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, 30*time.Second, rle.RetryAfter)

	c.advance(30 * time.Second)
	assert.NoError(t, rl.CheckRateLimit("a", 0))
}

func TestRateLimiter_Hour(t *testing.T) {
	rl, c := newTestLimiter(0, 3, 0, 0)
	for i := 0; i < 3; i++ {
		require.NoError(t, rl.CheckRateLimit("a", 0))
		c.advance(2 * time.Minute)
	}
	var rle *RateLimitError
	require.True(t, errors.As(rl.CheckRateLimit("a", 0), &rle))
	assert.Equal(t, "hour", rle.Type)

	c.advance(time.Hour)
	assert.NoError(t, rl.CheckRateLimit("a", 0))
}

func TestRateLimiter_DailyQuotas(t *testing.T) {
	t.Run("requests", func(t *testing.T) {
		rl, c := newTestLimiter(0, 0, 1, 0)
		require.NoError(t, rl.CheckRateLimit("a", 0))

		var qe *QuotaExceededError
		require.True(t, errors.As(rl.CheckRateLimit("a", 0), &qe))
		assert.Equal(t, "requests", qe.Type)
		assert.Equal(t, int64(1), qe.Used)
		assert.Equal(t, time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC), qe.Resets)

		c.advance(14 * time.Hour)
		assert.NoError(t, rl.CheckRateLimit("a", 0))
	})

	t.Run("data", func(t *testing.T) {
		rl, _ := newTestLimiter(0, 0, 0, 1000)
		require.NoError(t, rl.CheckRateLimit("a", 600))

		var qe *QuotaExceededError
		require.True(t, errors.As(rl.CheckRateLimit("a", 500), &qe))
		assert.Equal(t, "data", qe.Type)
		assert.Equal(t, int64(600), qe.Used)

		assert.NoError(t, rl.CheckRateLimit("a", 400))
	})
}

func TestRateLimiter_RejectedRequestsNotCounted(t *testing.T) {
	rl, _ := newTestLimiter(1, 0, 0, 0)
	require.NoError(t, rl.CheckRateLimit("a", 10))
	require.Error(t, rl.CheckRateLimit("a", 10))
	require.Error(t, rl.CheckRateLimit("a", 10))

	u := rl.Usage("a")
	assert.Equal(t, 1, u.RequestsLastMinute)
	assert.Equal(t, 1, u.RequestsToday)
	assert.Equal(t, int64(10), u.BytesToday)
}

func TestRateLimiter_UnknownClient(t *testing.T) {
	rl, _ := newTestLimiter(1, 1, 1, 1)
	assert.Equal(t, Usage{}, rl.Usage("nobody"))
}

func TestRateLimitErrors(t *testing.T) {
	e := &RateLimitError{Type: "minute", Limit: 5, RetryAfter: time.Second}
	assert.Contains(t, e.Error(), "minute")
	q := &QuotaExceededError{Type: "data", Limit: 10, Used: 9, Resets: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
	assert.Contains(t, q.Error(), "2026-01-02T00:00:00Z")
}
