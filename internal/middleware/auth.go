package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/drivekenya/recsys/internal/services"
)

// Context keys populated by Auth and consumed downstream (rate limiting,
// request logging).
const (
	ctxKeyUserID = "auth_user_id"
	ctxKeyTier   = "auth_tier"
	ctxKeyAPIKey = "auth_api_key"
)

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"code": code, "message": message},
	})
}

// Auth accepts either a partner API key or a JWT minted by the token
// endpoint, both as bearer credentials. API keys carry no dots; JWTs always
// do.
func Auth(authService *services.AuthService, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		credential, ok := bearerCredential(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, "MISSING_AUTHORIZATION",
				"Authorization header must be in format 'Bearer <token>'")
			return
		}

		if !strings.Contains(credential, ".") {
			authenticateAPIKey(c, authService, logger, credential)
			return
		}

		claims, err := authService.ValidateToken(credential)
		if err != nil {
			logger.WithError(err).Warn("Rejected invalid token")
			abortUnauthorized(c, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		c.Set(ctxKeyUserID, claims.UserID)
		c.Set(ctxKeyTier, claims.Tier)
		c.Set(ctxKeyAPIKey, claims.APIKey)
		c.Next()
	}
}

func authenticateAPIKey(c *gin.Context, authService *services.AuthService, logger *logrus.Logger, apiKey string) {
	tier, err := authService.ValidateAPIKey(apiKey)
	if err != nil {
		logger.WithError(err).Warn("Rejected API key")
		abortUnauthorized(c, "INVALID_API_KEY", "Invalid API key")
		return
	}

	// Partners acting for a renter name them in X-User-ID; anonymous calls
	// get a throwaway identity so rate limiting still has a subject.
	userID := uuid.New()
	if header := c.GetHeader("X-User-ID"); header != "" {
		parsed, err := uuid.Parse(header)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"code":    "INVALID_USER_ID",
					"message": "Invalid user ID format",
				},
			})
			return
		}
		userID = parsed
	}

	c.Set(ctxKeyUserID, userID)
	c.Set(ctxKeyTier, tier)
	c.Set(ctxKeyAPIKey, apiKey)
	c.Next()
}

func bearerCredential(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// GetUserFromContext returns the renter identity, partner tier, and API key
// Auth stored for this request.
func GetUserFromContext(c *gin.Context) (uuid.UUID, string, string) {
	userID, _ := c.Get(ctxKeyUserID)
	tier, _ := c.Get(ctxKeyTier)
	apiKey, _ := c.Get(ctxKeyAPIKey)

	return userID.(uuid.UUID), tier.(string), apiKey.(string)
}
