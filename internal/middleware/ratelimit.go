package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/drivekenya/recsys/internal/services"
)

// RateLimit enforces per-user limits after Auth has populated the context.
func RateLimit(rateLimitService *services.RateLimitService, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, userTier, _ := GetUserFromContext(c)

		allowed, info, err := rateLimitService.IsAllowed(userID.String(), userTier)
		if err != nil {
			logger.WithError(err).Error("Rate limit check failed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime))

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "RATE_LIMIT_EXCEEDED",
					"message": "Rate limit exceeded, try again later",
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
