package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Partner tiers. Basic covers the consumer app; partner and fleet cover
// integrators and fleet operators calling on behalf of their renters.
const (
	TierBasic   = "basic"
	TierPartner = "partner"
	TierFleet   = "fleet"
)

// JWTClaims carries the renter identity and the partner tier the token was
// minted under.
type JWTClaims struct {
	UserID uuid.UUID `json:"user_id"`
	APIKey string    `json:"api_key,omitempty"`
	Tier   string    `json:"tier"`
	jwt.RegisteredClaims
}

// AuthRequest exchanges a partner API key (optionally acting for a known
// renter) for a token.
type AuthRequest struct {
	APIKey string `json:"api_key" validate:"required"`
	UserID string `json:"user_id,omitempty"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Tier      string    `json:"tier"`
}

// RateLimitInfo mirrors the X-RateLimit-* response headers.
type RateLimitInfo struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"reset_time"`
}
