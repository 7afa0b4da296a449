package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivekenya/recsys/internal/config"
	"github.com/drivekenya/recsys/internal/services"
	"github.com/drivekenya/recsys/pkg/models"
)

func newAuthTestRouter(t *testing.T) (*gin.Engine, *services.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret: "test-signing-secret",
			TokenTTL:  time.Hour,
			APIKeys: map[string]string{
				"pk-safari-tours": models.TierPartner,
			},
		},
	}

	// Session storage is best-effort; an unreachable client exercises the
	// signature-only validation path.
	redisClient := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 20 * time.Millisecond,
		MaxRetries:  -1,
	})
	authService := services.NewAuthService(cfg, logger, redisClient)

	router := gin.New()
	router.Use(Auth(authService, logger))
	router.GET("/whoami", func(c *gin.Context) {
		userID, tier, apiKey := GetUserFromContext(c)
		c.JSON(http.StatusOK, gin.H{
			"user_id": userID.String(),
			"tier":    tier,
			"api_key": apiKey,
		})
	})

	return router, authService
}

func TestAuth_APIKey(t *testing.T) {
	router, _ := newAuthTestRouter(t)

	t.Run("accepts configured partner key", func(t *testing.T) {
		userID := uuid.New()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer pk-safari-tours")
		req.Header.Set("X-User-ID", userID.String())
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), userID.String())
		assert.Contains(t, w.Body.String(), models.TierPartner)
	})

	t.Run("rejects unknown key", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer pk-never-issued")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_API_KEY")
	})

	t.Run("rejects malformed renter header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer pk-safari-tours")
		req.Header.Set("X-User-ID", "not-a-uuid")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_USER_ID")
	})
}

func TestAuth_JWT(t *testing.T) {
	router, authService := newAuthTestRouter(t)

	t.Run("accepts minted token", func(t *testing.T) {
		userID := uuid.New()
		token, err := authService.GenerateToken(userID, "pk-safari-tours", models.TierPartner)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), userID.String())
		assert.Contains(t, w.Body.String(), models.TierPartner)
	})

	t.Run("rejects garbage token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer not.a.jwt")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
	})

	t.Run("rejects missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "MISSING_AUTHORIZATION")
	})
}
