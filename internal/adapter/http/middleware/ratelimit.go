package middleware

import (
	"fmt"
	"strconv"
	"time"

	"ebook-marketplace/internal/core/ports"
	"ebook-marketplace/pkg/apperror"
	"ebook-marketplace/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// CheckoutRule limits how many checkouts one buyer may start per hour.
func CheckoutRule(perHour int64) RateLimitRule {
	if perHour <= 0 {
		perHour = 20
	}
	return RateLimitRule{Limit: perHour, Window: time.Hour}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// A limiter error lets the request through.
func RateLimiter(limiter ports.RateLimiter, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", group, extractIdentifier(c))

		allowed, remaining, err := limiter.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(rule.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if !allowed {
			c.Header("Retry-After", strconv.FormatInt(int64(rule.Window/time.Second), 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier keys authenticated callers by user id, others by client ip.
func extractIdentifier(c *gin.Context) string {
	if p := PrincipalFrom(c); p.UserID != 0 {
		return "user:" + strconv.FormatInt(p.UserID, 10)
	}
	return "ip:" + c.ClientIP()
}
