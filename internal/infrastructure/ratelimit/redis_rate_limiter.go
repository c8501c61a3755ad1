// Package ratelimit implements fixed-window request limiting backed by Redis
// with an in-process fallback.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/tokengate/internal/config"
	"github.com/turtacn/tokengate/internal/domain/service"
	"github.com/turtacn/tokengate/pkg/constants"
	"github.com/turtacn/tokengate/pkg/errors"
	"github.com/turtacn/tokengate/pkg/logger"
)

const keyPrefix = "tokengate:ratelimit"

// fixedWindowScript increments the counter and starts the window on the first hit.
// KEYS[1] = counter key
// ARGV[1] = window length in milliseconds
// Returns {count, remaining window ms}.
const fixedWindowScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`

// RedisRateLimiter counts requests per scope and key in Redis.
type RedisRateLimiter struct {
	client   redis.UniversalClient
	script   *redis.Script
	limit    int
	window   time.Duration
	fallback service.RateLimiter
	logger   logger.Logger
	now      func() time.Time
}

// NewRedisRateLimiter creates a limiter allowing cfg.Limit requests per cfg.Window.
// When Redis fails the decision is delegated to fallback; a nil fallback
// surfaces the Redis error instead.
func NewRedisRateLimiter(client redis.UniversalClient, cfg config.RateLimitConfig, fallback service.RateLimiter, log logger.Logger) *RedisRateLimiter {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &RedisRateLimiter{
		client:   client,
		script:   redis.NewScript(fixedWindowScript),
		limit:    cfg.Limit,
		window:   normalizeWindow(cfg.Window),
		fallback: fallback,
		logger:   log,
		now:      time.Now,
	}
}

// Allow records one request for key under scope.
func (r *RedisRateLimiter) Allow(ctx context.Context, scope constants.RateLimitScope, key string) (bool, int, time.Time, error) {
	redisKey := fmt.Sprintf("%s:%s:%s", keyPrefix, scope, key)

	res, err := r.script.Run(ctx, r.client, []string{redisKey}, r.window.Milliseconds()).Int64Slice()
	if err != nil {
		if r.fallback != nil {
			r.logger.Warn(ctx, "Redis rate limiter unavailable, using in-memory fallback", logger.Fields{
				"scope": scope,
				"error": err.Error(),
			})
			return r.fallback.Allow(ctx, scope, key)
		}
		return false, 0, time.Time{}, errors.ErrCache.WithMessage("rate limiter backend failed").WithError(err)
	}
	if len(res) != 2 {
		return false, 0, time.Time{}, errors.ErrCache.WithMessage("unexpected rate limiter script result")
	}

	count := int(res[0])
	resetAt := r.now().Add(time.Duration(res[1]) * time.Millisecond)
	return decide(count, r.limit, resetAt)
}

func decide(count, limit int, resetAt time.Time) (bool, int, time.Time, error) {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= limit, remaining, resetAt, nil
}

func normalizeWindow(w time.Duration) time.Duration {
	if w <= 0 {
		return time.Minute
	}
	return w
}

var _ service.RateLimiter = (*RedisRateLimiter)(nil)
