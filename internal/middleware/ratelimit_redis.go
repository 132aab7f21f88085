// ratelimit_redis.go provides the Redis-backed rate limiter used when the API runs as
// multiple instances behind a load balancer. The in-memory token bucket in ratelimit.go
// is per-process; GCRA via redis_rate gives all instances a shared budget per client.
package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// NewRedisRateLimiter creates a redis_rate limiter on the shared client
func NewRedisRateLimiter(rdb *redis.Client) *redis_rate.Limiter {
	return redis_rate.NewLimiter(rdb)
}

// RedisRateLimitMiddleware enforces a shared per-minute limit keyed the same way as the
// in-memory limiter. Redis errors fail open: a rate limiter outage must not take the
// API down with it.
func RedisRateLimitMiddleware(limiter *redis_rate.Limiter, requestsPerMinute, burst int) gin.HandlerFunc {
	limit := redis_rate.Limit{
		Rate:   requestsPerMinute,
		Burst:  burst,
		Period: time.Minute,
	}

	return func(c *gin.Context) {
		key := "ratelimit:" + getRateLimitKey(c)

		res, err := limiter.Allow(c.Request.Context(), key, limit)
		if err != nil {
			slog.Warn("redis rate limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(requestsPerMinute))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if res.Allowed == 0 {
			c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
			abortRateLimited(c)
			return
		}

		c.Next()
	}
}
