package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/drivekenya/recsys/internal/config"
	"github.com/drivekenya/recsys/pkg/models"
)

const tokenIssuer = "drivekenya-recsys"

// AuthService mints and validates tokens for partners calling the
// recommendation API. Partner API keys and their tiers come from
// configuration; sessions live in the hot Redis tier so tokens can be
// revoked before expiry.
type AuthService struct {
	config      *config.Config
	logger      *logrus.Logger
	redisClient *redis.Client
	jwtSecret   []byte
}

func NewAuthService(cfg *config.Config, logger *logrus.Logger, redisClient *redis.Client) *AuthService {
	return &AuthService{
		config:      cfg,
		logger:      logger,
		redisClient: redisClient,
		jwtSecret:   []byte(cfg.Auth.JWTSecret),
	}
}

func (s *AuthService) GenerateToken(userID uuid.UUID, apiKey, tier string) (string, error) {
	now := time.Now()
	claims := &models.JWTClaims{
		UserID: userID,
		APIKey: apiKey,
		Tier:   tier,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.Auth.TokenTTL)),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	// Session write failure must not block token issuance; revocation just
	// becomes best-effort until Redis recovers.
	if err := s.redisClient.Set(context.Background(),
		s.sessionKey(userID), tokenString, s.config.Auth.TokenTTL).Err(); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).
			Warn("Failed to store session, token issued without revocation support")
	}

	return tokenString, nil
}

func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	exists, err := s.redisClient.Exists(context.Background(), s.sessionKey(claims.UserID)).Result()
	if err != nil {
		// Redis down: accept a cryptographically valid token rather than
		// taking recommendations offline with it.
		s.logger.WithError(err).Warn("Session lookup failed, accepting token on signature alone")
	} else if exists == 0 {
		return nil, fmt.Errorf("session revoked or expired")
	}

	return claims, nil
}

func (s *AuthService) RevokeToken(userID uuid.UUID) error {
	if err := s.redisClient.Del(context.Background(), s.sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// ValidateAPIKey resolves a partner API key to its tier. Keys are issued per
// partner during onboarding and distributed through configuration.
func (s *AuthService) ValidateAPIKey(apiKey string) (string, error) {
	tier, ok := s.config.Auth.APIKeys[apiKey]
	if !ok {
		return "", fmt.Errorf("unknown API key")
	}

	switch tier {
	case models.TierBasic, models.TierPartner, models.TierFleet:
		return tier, nil
	default:
		return "", fmt.Errorf("API key mapped to unknown tier %q", tier)
	}
}

func (s *AuthService) sessionKey(userID uuid.UUID) string {
	return "session:" + userID.String()
}
