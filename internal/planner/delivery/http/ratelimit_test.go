package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLimiter struct {
	mu    sync.Mutex
	max   int
	seen  map[string]int
	fails bool
}

func (l *countingLimiter) Allow(_ context.Context, key string) (Decision, error) {
	if l.fails {
		return Decision{}, errors.New("redis down")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seen == nil {
		l.seen = make(map[string]int)
	}
	count := l.seen[key]
	l.seen[key]++
	return Decision{
		Allowed:   count < l.max,
		Limit:     l.max,
		Remaining: max(l.max-count-1, 0),
		Reset:     time.Now().Add(time.Minute),
	}, nil
}

func limitedHandler(l Limiter) http.Handler {
	return RateLimitMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func request(h http.Handler, path, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitMiddleware(t *testing.T) {
	h := limitedHandler(&countingLimiter{max: 2})

	assert.Equal(t, http.StatusNoContent, request(h, "/api/dishes", "10.0.0.1:1234").Code)
	rec := request(h, "/api/dishes", "10.0.0.1:4321")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = request(h, "/api/dishes", "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, request(h, "/api/dishes", "10.0.0.2:1234").Code, "budgets are per client")
	assert.Equal(t, http.StatusNoContent, request(h, "/health", "10.0.0.1:1234").Code, "only /api is limited")
}

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	h := limitedHandler(&countingLimiter{max: 0, fails: true})
	rec := request(h, "/api/plan", "10.0.0.1:1234")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("PLANNER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PLANNER_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	limiter := NewRedisLimiter(client, 2, time.Minute)
	key := "test-" + uuid.NewString()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := limiter.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	d, err := limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
}
