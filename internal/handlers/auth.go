package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/drivekenya/recsys/internal/config"
	"github.com/drivekenya/recsys/internal/services"
	"github.com/drivekenya/recsys/pkg/models"
)

type AuthHandler struct {
	authService *services.AuthService
	config      *config.Config
	logger      *logrus.Logger
}

func NewAuthHandler(authService *services.AuthService, cfg *config.Config, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		config:      cfg,
		logger:      logger,
	}
}

// Token exchanges an API key for a short-lived JWT.
func (h *AuthHandler) Token(c *gin.Context) {
	var req models.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST_BODY",
				"message": "Invalid auth request format",
			},
		})
		return
	}

	tier, err := h.authService.ValidateAPIKey(req.APIKey)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{
				"code":    "INVALID_API_KEY",
				"message": "Invalid API key",
			},
		})
		return
	}

	userID := uuid.New()
	if req.UserID != "" {
		parsed, err := uuid.Parse(req.UserID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"code":    "INVALID_USER_ID",
					"message": "Invalid user ID format",
				},
			})
			return
		}
		userID = parsed
	}

	token, err := h.authService.GenerateToken(userID, req.APIKey, tier)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "TOKEN_GENERATION_FAILED",
				"message": "Failed to generate token",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.config.Auth.TokenTTL),
		Tier:      tier,
	})
}
