package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimited throttles a route group with the sliding-window limiter. On a
// limiter backend failure the request is allowed through; auth endpoints must
// not go dark because Redis blinked.
func RateLimited(limiter rateLimiter, logger *zap.Logger, limit int, window time.Duration, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)

		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.Warn("rate limiter unavailable, allowing request", zap.Error(err))
			c.Next()
			return
		}

		remaining, _ := limiter.Remaining(c.Request.Context(), key, limit, window)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": gin.H{
				"message": "too many requests, slow down",
				"status":  http.StatusTooManyRequests,
				"code":    "RATE_LIMITED",
			}})
			return
		}

		c.Next()
	}
}

// rateLimiter is the slice of the limiter the middleware needs
type rateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
	Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error)
}

// IPBasedKey keys the limiter on the client address, honoring proxies
func IPBasedKey(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	return c.ClientIP()
}

// PathAndIPKey scopes the limit per endpoint so a burst against login does
// not starve refresh
func PathAndIPKey(c *gin.Context) string {
	return c.FullPath() + ":" + IPBasedKey(c)
}
