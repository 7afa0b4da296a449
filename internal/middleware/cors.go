package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/drivekenya/recsys/internal/config"
)

// CORS serves the consumer web app and partner dashboards; rate-limit
// headers are exposed so clients can back off before hitting 429s.
func CORS(cfg *config.Config) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: cfg.Security.CORS.AllowedOrigins,
		AllowMethods: cfg.Security.CORS.AllowedMethods,
		AllowHeaders: cfg.Security.CORS.AllowedHeaders,
		ExposeHeaders: []string{
			"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
