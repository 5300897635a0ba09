package middleware

import (
	"confessly/internal/apperrors"
	"confessly/internal/ratelimit"
	"confessly/internal/utils"
	"confessly/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RateLimit guards a route with the limiter quota for one action.
// Authenticated callers are keyed by user id; unauthenticated ones
// fall back to the client IP, which is a weaker identity behind NAT.
func RateLimit(limiter *ratelimit.Limiter, action ratelimit.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := c.ClientIP()
		if userID, ok := CurrentUserID(c); ok {
			identity = userID.Hex()
		}

		result := limiter.Allow(identity, action)
		if !result.Permitted {
			logger.WithFields(map[string]interface{}{
				"identity":    identity,
				"action":      string(action),
				"retry_after": result.RetryAfter.String(),
			}).Warn("Rate limit exceeded")

			utils.ErrorResponse(c, apperrors.RateLimited(string(action), result.RetryAfter))
			c.Abort()
			return
		}

		c.Next()
	}
}
