package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/tokengate/internal/application/dto"
	"github.com/turtacn/tokengate/internal/domain/service"
	"github.com/turtacn/tokengate/pkg/constants"
	"github.com/turtacn/tokengate/pkg/errors"
	"github.com/turtacn/tokengate/pkg/logger"
)

// RateLimitRecorder counts rejected requests.
type RateLimitRecorder interface {
	RecordRateLimitHit(scope constants.RateLimitScope)
}

// RateLimit throttles requests per client IP under scope. Limiter failures
// fail open.
func RateLimit(limiter service.RateLimiter, scope constants.RateLimitScope, recorder RateLimitRecorder, log logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := c.ClientIP()

		allowed, remaining, resetAt, err := limiter.Allow(ctx, scope, key)
		if err != nil {
			log.Error(ctx, "rate limiter failed", err, logger.Fields{"scope": scope})
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			retryAfter := int(math.Ceil(time.Until(resetAt).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			if recorder != nil {
				recorder.RecordRateLimitHit(scope)
			}
			log.Warn(ctx, "rate limit exceeded", logger.Fields{"scope": scope, "client_ip": key})
			dto.AbortWithError(c, errors.ErrRateLimitExceeded.WithDetail("retry_after", strconv.Itoa(retryAfter)))
			return
		}
		c.Next()
	}
}
