package middleware

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
)

// RateLimiter provides Redis-backed fixed window rate limiting per client IP.
// A nil client disables limiting.
type RateLimiter struct {
	rdb       *redis.Client
	scope     string
	maxReqs   int
	windowSec int
}

// NewRateLimiter creates a rate limiter. scope namespaces the Redis keys.
func NewRateLimiter(rdb *redis.Client, scope string, maxReqs, windowSec int) *RateLimiter {
	return &RateLimiter{
		rdb:       rdb,
		scope:     scope,
		maxReqs:   maxReqs,
		windowSec: windowSec,
	}
}

// Handler returns a Fiber middleware handler for rate limiting.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		if rl.rdb == nil || rl.maxReqs <= 0 {
			return c.Next()
		}

		key := fmt.Sprintf("ratelimit:%s:%s", rl.scope, c.IP())
		ctx := c.Context()

		count, err := rl.rdb.Incr(ctx, key).Result()
		if err != nil {
			// fail open
			slog.Warn("rate limiter unavailable", "error", err)
			return c.Next()
		}

		if count == 1 {
			rl.rdb.Expire(ctx, key, time.Duration(rl.windowSec)*time.Second)
		}

		ttl, _ := rl.rdb.TTL(ctx, key).Result()

		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.maxReqs))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(rl.maxReqs)-count), 10))
		c.Set("X-RateLimit-Reset", strconv.Itoa(int(ttl.Seconds())))

		if int(count) > rl.maxReqs {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate limit exceeded",
				"retry_after": int(ttl.Seconds()),
			})
		}

		return c.Next()
	}
}
