package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mintlabs/mintguard/internal/metrics"
)

// Identity derives the rate-limit identity for a request: the API key prefix
// when the caller authenticates, otherwise the client IP.
func Identity(c *gin.Context) string {
	if apiKey := c.GetHeader("Authorization"); apiKey != "" {
		if len(apiKey) > 20 {
			apiKey = apiKey[:20]
		}
		return "auth:" + apiKey
	}
	return c.ClientIP()
}

// Middleware gates requests and emits the standard rate-limit headers on
// every gated response. Rejected requests fail fast with 429 before any
// upstream work happens.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		v := l.Check(c.Request.Context(), Identity(c), time.Now())

		c.Header("X-RateLimit-Limit", strconv.Itoa(v.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(v.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(v.ResetEpochSeconds, 10))

		if !v.Allowed {
			metrics.RateLimitRejectionsTotal.Inc()
			c.Header("Retry-After", strconv.FormatInt(v.RetryAfterSeconds, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limit_exceeded",
				"message":     "Too many requests. Please slow down.",
				"retry_after": v.RetryAfterSeconds,
			})
			return
		}

		c.Next()
	}
}
