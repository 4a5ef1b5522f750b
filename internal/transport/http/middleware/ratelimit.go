package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ErlanBelekov/authgate/internal/metrics"
	"github.com/ErlanBelekov/authgate/internal/ratelimit"
)

const errRateLimitExceeded = "Rate limit exceeded"

type limiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
}

// KeyFunc picks the rate limit bucket for a request.
type KeyFunc func(c *gin.Context) string

// GlobalKey puts every request in one shared window.
func GlobalKey(*gin.Context) string { return ratelimit.GlobalKey }

// ClientIPKey gives each client address its own window.
func ClientIPKey(c *gin.Context) string { return "ip:" + c.ClientIP() }

// RateLimit rejects requests over quota with 429 before they reach a handler.
// The hit is recorded on a context detached from the client, so a disconnect
// cannot leave the count half-applied. If the store fails the request is let
// through.
func RateLimit(l limiter, key KeyFunc, logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "rate_limit")

	return func(c *gin.Context) {
		d, err := l.Allow(context.WithoutCancel(c.Request.Context()), key(c))
		if err != nil {
			metrics.RateLimitStoreErrorsTotal.Inc()
			logger.WarnContext(c.Request.Context(), "rate limit store unavailable, allowing request", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

		if !d.Allowed {
			metrics.RateLimitRejectedTotal.Inc()
			c.Header("Retry-After", strconv.Itoa(int(d.RetryAfter(time.Now())/time.Second)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": errRateLimitExceeded})
			return
		}
		c.Next()
	}
}
