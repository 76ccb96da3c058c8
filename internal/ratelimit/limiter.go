// Package ratelimit provides per-client request limits for echo routes,
// kept in process memory or in Redis when several replicas share limits.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/Skotchmaster/shop_api/pkg/logging"
)

// Policy allows Max requests per Window for each client.
type Policy struct {
	Max    int
	Window time.Duration
}

// NewMemoryStore spreads the policy as a token bucket: Max tokens that refill
// over Window.
func NewMemoryStore(p Policy) echomw.RateLimiterStore {
	return echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(p.Max) / p.Window.Seconds()),
		Burst:     p.Max,
		ExpiresIn: p.Window,
	})
}

// RedisStore counts requests in fixed windows shared through Redis. When Redis
// is unreachable requests are allowed.
type RedisStore struct {
	client *redis.Client
	prefix string
	policy Policy
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, prefix string, p Policy) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, policy: p, now: time.Now}
}

func (s *RedisStore) key(identifier string) string {
	window := s.now().UnixNano() / int64(s.policy.Window)
	return fmt.Sprintf("ratelimit:%s:%s:%d", s.prefix, identifier, window)
}

func (s *RedisStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	key := s.key(identifier)
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		logging.FromContext(ctx).Warn("ratelimit_store_unavailable", "error", err)
		return true, nil
	}
	if n == 1 {
		if err := s.client.Expire(ctx, key, s.policy.Window).Err(); err != nil {
			logging.FromContext(ctx).Warn("ratelimit_expire_failed", "key", key, "error", err)
		}
	}
	return n <= int64(s.policy.Max), nil
}

// Middleware limits requests per client IP and answers 429 with message once
// the limit is hit.
func Middleware(store echomw.RateLimiterStore, message string) echo.MiddlewareFunc {
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "cannot identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			logging.FromContext(c.Request().Context()).Warn("rate_limited", "status", http.StatusTooManyRequests, "client", identifier)
			return echo.NewHTTPError(http.StatusTooManyRequests, message)
		},
	})
}
