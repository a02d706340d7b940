package middleware

import (
	"net/http"

	"github.com/aman-churiwal/quota-gate/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

// TokenHeader carries the quota token on limited routes.
const TokenHeader = "X-Quota-Token"

// RateLimit guards a route with the decision engine. The token comes from
// the X-Quota-Token header; without one the client IP is limited instead.
func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(TokenHeader)
		ip := c.ClientIP()

		denied, err := limiter.Check(c.Request.Context(), token, ip)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Rate limit check failed",
			})
			c.Abort()
			return
		}

		if denied {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
