package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is the in-memory fixed-window limiter. It only sees one
// process; multi-instance deployments use the Redis-backed limiter for
// the credential endpoints instead.
type RateLimiter struct {
	mu        sync.Mutex
	window    time.Duration
	limit     int
	clients   map[string]*clientBucket
	nextSweep time.Time
}

type clientBucket struct {
	count     int
	windowEnd time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:     limit,
		window:    window,
		clients:   make(map[string]*clientBucket),
		nextSweep: time.Now().Add(window),
	}
}

// Middleware returns a gin.HandlerFunc that enforces the limit for a derived key.
func (rl *RateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			// fallback to IP if key cannot be derived
			key = clientIP(c)
		}

		now := time.Now()

		rl.mu.Lock()

		// drop buckets whose window has lapsed, at most once per window,
		// so the map does not grow with one entry per client forever
		if now.After(rl.nextSweep) {
			for k, stale := range rl.clients {
				if now.After(stale.windowEnd) {
					delete(rl.clients, k)
				}
			}

			rl.nextSweep = now.Add(rl.window)
		}

		b, ok := rl.clients[key]

		if !ok || now.After(b.windowEnd) {
			rl.clients[key] = &clientBucket{
				count:     1,
				windowEnd: now.Add(rl.window),
			}

			rl.mu.Unlock()
			c.Next()
			return
		}

		if b.count >= rl.limit {
			retryAfter := int(time.Until(b.windowEnd).Seconds())

			if retryAfter < 0 {
				retryAfter = 0
			}

			rl.mu.Unlock()

			abortRateLimited(c, retryAfter)
			return
		}

		b.count++
		rl.mu.Unlock()
		c.Next()
	}
}

func abortRateLimited(c *gin.Context, retryAfterSeconds int) {
	c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))

	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error": gin.H{
			"code":    "rate_limited",
			"message": "Too many requests. Please try again shortly.",
		},
	})
}

// for unauthenticated endpoints: rate limit by IP
func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

// For authenticated endpoints: rate limit by user if available
func KeyByUserOrIP(c *gin.Context) string {
	u, ok := CurrentUserFromContext(c)

	if ok && u.ID != "" {
		return "user:" + u.ID
	}

	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}
