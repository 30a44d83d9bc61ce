package middlewares

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

type WindowLimiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// AuthRateLimit keys on client IP and guards login/register against
// credential stuffing. The limiter errors open: if Redis is down the
// request goes through rather than locking everyone out.
func AuthRateLimit(limiter WindowLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "authrl:" + clientIP(c)

		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), key)

		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			abortRateLimited(c, int(retryAfter.Seconds()))
			return
		}

		c.Next()
	}
}
