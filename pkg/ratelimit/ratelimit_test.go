package ratelimit_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendit-api/trendit/pkg/ratelimit"
)

func TestLimiter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("allows up to the limit", func(t *testing.T) {
		t.Parallel()

		limiter, err := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Config{Limit: 3, Window: time.Minute})
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			res, err := limiter.Allow(ctx, "1.2.3.4")
			require.NoError(t, err)
			assert.True(t, res.Allowed)
			assert.Equal(t, 3-i-1, res.Remaining)
		}

		res, err := limiter.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, 0, res.Remaining)
		assert.Positive(t, res.RetryAfter())
	})

	t.Run("keys are independent", func(t *testing.T) {
		t.Parallel()

		limiter, err := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Config{Limit: 1, Window: time.Minute})
		require.NoError(t, err)

		res, err := limiter.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, res.Allowed)

		res, err = limiter.Allow(ctx, "a")
		require.NoError(t, err)
		assert.False(t, res.Allowed)

		res, err = limiter.Allow(ctx, "b")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("window expiry resets the counter", func(t *testing.T) {
		t.Parallel()

		limiter, err := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Config{Limit: 1, Window: 50 * time.Millisecond})
		require.NoError(t, err)

		res, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		require.True(t, res.Allowed)

		res, err = limiter.Allow(ctx, "k")
		require.NoError(t, err)
		require.False(t, res.Allowed)

		time.Sleep(60 * time.Millisecond)

		res, err = limiter.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("invalid config rejected", func(t *testing.T) {
		t.Parallel()

		_, err := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Config{Limit: 0, Window: time.Minute})
		require.ErrorIs(t, err, ratelimit.ErrInvalidConfig)

		_, err = ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Config{Limit: 5, Window: 0})
		require.ErrorIs(t, err, ratelimit.ErrInvalidConfig)

		_, err = ratelimit.New(nil, ratelimit.Config{Limit: 5, Window: time.Minute})
		require.ErrorIs(t, err, ratelimit.ErrInvalidConfig)
	})
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	limiter, err := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Config{Limit: 2, Window: time.Minute})
	require.NoError(t, err)

	handler := ratelimit.Middleware(limiter, ratelimit.ByClientIP)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := do("10.0.0.1:5000")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do("10.0.0.1:5001")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do("10.0.0.1:5002")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A different client is unaffected.
	rec = do("10.0.0.2:5000")
	assert.Equal(t, http.StatusOK, rec.Code)
}
