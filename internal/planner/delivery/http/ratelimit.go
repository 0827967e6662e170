package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tair/fridge-planner/pkg/logger"
)

// Limiter decides whether the client identified by key may make another
// request.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// RedisLimiter is a sliding-window limiter shared by every instance through
// a Redis sorted set per client.
type RedisLimiter struct {
	redis       *redis.Client
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// NewRedisLimiter allows maxRequests per window for each client
func NewRedisLimiter(client *redis.Client, maxRequests int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		redis:       client,
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// Allow records the request and reports whether it fits in the window
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := "planner:ratelimit:" + key
	now := l.now()
	windowStart := now.Add(-l.window)

	pipe := l.redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: now.UnixNano(),
	})
	pipe.Expire(ctx, redisKey, l.window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("failed to check rate limit: %w", err)
	}

	count := int(countCmd.Val())
	remaining := l.maxRequests - count - 1
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count < l.maxRequests,
		Limit:     l.maxRequests,
		Remaining: remaining,
		Reset:     now.Add(l.window),
	}, nil
}

// RateLimitMiddleware rejects API requests over the limiter's budget with
// 429. Limiter errors let the request through.
func RateLimitMiddleware(limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}

			client := clientIP(r)
			decision, err := limiter.Allow(r.Context(), client)
			if err != nil {
				logger.WithContext(r.Context()).Error().
					Err(err).
					Str("client", client).
					Msg("Rate limiter error")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.Reset.Unix(), 10))

			if !decision.Allowed {
				logger.WithContext(r.Context()).Warn().
					Str("client", client).
					Int("limit", decision.Limit).
					Msg("Rate limit exceeded")

				retryAfter := time.Until(decision.Reset).Round(time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
				respondJSON(w, http.StatusTooManyRequests, Response{
					Success: false,
					Error:   fmt.Sprintf("Too many requests. Try again in %v", retryAfter),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
