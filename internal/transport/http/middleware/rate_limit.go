package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Limiter is the renewing-window counter backing the per-client throttle.
// The verification layer's limiter satisfies it.
type Limiter interface {
	Allow(ctx context.Context, identifier string) (allowed bool, retryAfter time.Duration, err error)
	Record(ctx context.Context, identifier string) error
}

// IdentifierFunc extracts the identifier used to scope rate limits (e.g., client IP).
type IdentifierFunc func(*gin.Context) (string, bool)

// ClientIPIdentifier builds an IdentifierFunc using the request's client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		if ip == "" {
			return "", false
		}
		return ip, true
	}
}

// ThrottleRule scopes a limiter to a named route group and identifier source.
type ThrottleRule struct {
	Name       string
	Identifier IdentifierFunc
}

// Throttle returns a middleware that refuses requests once the client's
// window is exhausted. Store failures fail open: the request proceeds and
// the limiter is bypassed rather than taking the endpoint down.
func Throttle(limiter Limiter, rule ThrottleRule, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if limiter == nil || rule.Identifier == nil {
			c.Next()
			return
		}

		identifier, ok := rule.Identifier(c)
		if !ok {
			c.Next()
			return
		}

		key := rule.Name + ":" + identifier
		ctx := c.Request.Context()

		allowed, retryAfter, err := limiter.Allow(ctx, key)
		if err != nil {
			log.Warn("throttle check failed, allowing request",
				zap.String("rule", rule.Name),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 0 {
				seconds = 0
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many requests",
				"retry_after": seconds,
				"trace_id":    GetTraceID(c),
			})
			return
		}

		if err := limiter.Record(ctx, key); err != nil {
			log.Warn("throttle record failed",
				zap.String("rule", rule.Name),
				zap.Error(err),
			)
		}

		c.Next()
	}
}
