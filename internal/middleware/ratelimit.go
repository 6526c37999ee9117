package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter in redis, shared across instances.
type RateLimiter struct {
	Redis  *redis.Client
	Prefix string
	Limit  int
	Window time.Duration
}

func NewRateLimiter(r *redis.Client, prefix string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{Redis: r, Prefix: prefix, Limit: limit, Window: window}
}

func (r *RateLimiter) MiddlewareByKey(keyFunc func(c *fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := keyFunc(c)
		ctx := context.Background()
		redisKey := fmt.Sprintf("%s:ratelimit:%s", r.Prefix, key)
		count, err := r.Redis.Incr(ctx, redisKey).Result()
		if err != nil {
			// on limiter failure, let the request through rather than 500
			return c.Next()
		}
		if count == 1 {
			r.Redis.Expire(ctx, redisKey, r.Window)
		}
		if count > int64(r.Limit) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		}
		return c.Next()
	}
}

// ByIP keys the limiter on the caller address.
func (r *RateLimiter) ByIP() fiber.Handler {
	return r.MiddlewareByKey(func(c *fiber.Ctx) string { return c.IP() })
}
