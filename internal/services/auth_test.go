package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivekenya/recsys/internal/config"
	"github.com/drivekenya/recsys/pkg/models"
)

func testAuthConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret: "test-signing-secret",
			TokenTTL:  time.Hour,
			APIKeys: map[string]string{
				"pk-acme-basic":   models.TierBasic,
				"pk-safari-tours": models.TierPartner,
				"pk-nbo-fleet":    models.TierFleet,
				"pk-misconfig":    "platinum",
			},
			RateLimit: config.RateLimitConfig{
				Basic:   1000,
				Partner: 10000,
				Fleet:   100000,
				Window:  time.Hour,
			},
		},
	}
}

// unreachableRedis points at a closed port. Session storage is best-effort,
// so auth must keep working when it fails.
func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 20 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func newTestAuthService(cfg *config.Config) *AuthService {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewAuthService(cfg, logger, unreachableRedis())
}

func TestAuthService_ValidateAPIKey(t *testing.T) {
	service := newTestAuthService(testAuthConfig())

	cases := []struct {
		name     string
		apiKey   string
		wantTier string
		wantErr  bool
	}{
		{name: "basic partner", apiKey: "pk-acme-basic", wantTier: models.TierBasic},
		{name: "partner tier", apiKey: "pk-safari-tours", wantTier: models.TierPartner},
		{name: "fleet tier", apiKey: "pk-nbo-fleet", wantTier: models.TierFleet},
		{name: "unknown key", apiKey: "pk-never-issued", wantErr: true},
		{name: "empty key", apiKey: "", wantErr: true},
		{name: "misconfigured tier", apiKey: "pk-misconfig", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tier, err := service.ValidateAPIKey(tc.apiKey)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantTier, tier)
		})
	}
}

func TestAuthService_TokenRoundTrip(t *testing.T) {
	service := newTestAuthService(testAuthConfig())
	userID := uuid.New()

	token, err := service.GenerateToken(userID, "pk-safari-tours", models.TierPartner)
	require.NoError(t, err, "token issuance survives session store outage")

	claims, err := service.ValidateToken(token)
	require.NoError(t, err, "valid signature is accepted when session lookup fails")

	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, models.TierPartner, claims.Tier)
	assert.Equal(t, "pk-safari-tours", claims.APIKey)
	assert.Equal(t, tokenIssuer, claims.Issuer)
}

func TestAuthService_RejectsForeignSignature(t *testing.T) {
	service := newTestAuthService(testAuthConfig())

	otherCfg := testAuthConfig()
	otherCfg.Auth.JWTSecret = "some-other-secret"
	other := newTestAuthService(otherCfg)

	token, err := other.GenerateToken(uuid.New(), "pk-safari-tours", models.TierPartner)
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Error(t, err)
}

func TestAuthService_RejectsExpiredToken(t *testing.T) {
	cfg := testAuthConfig()
	cfg.Auth.TokenTTL = -time.Minute
	service := newTestAuthService(cfg)

	token, err := service.GenerateToken(uuid.New(), "pk-acme-basic", models.TierBasic)
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Error(t, err)
}
