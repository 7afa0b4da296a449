package services

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/drivekenya/recsys/internal/config"
	"github.com/drivekenya/recsys/pkg/models"
)

// RateLimitService enforces per-renter request budgets, sized by partner
// tier, over a sliding window kept in the hot Redis tier.
type RateLimitService struct {
	config      *config.Config
	logger      *logrus.Logger
	redisClient *redis.Client
}

func NewRateLimitService(cfg *config.Config, logger *logrus.Logger, redisClient *redis.Client) *RateLimitService {
	return &RateLimitService{
		config:      cfg,
		logger:      logger,
		redisClient: redisClient,
	}
}

// CheckLimit counts the caller's requests inside the window and records the
// current one. Redis outages fail open; recommendations stay up even when
// limiting is blind.
func (s *RateLimitService) CheckLimit(userID, tier string) (*models.RateLimitInfo, error) {
	limit := s.limitFor(tier)
	window := s.config.Auth.RateLimit.Window

	key := "rl:user:" + userID
	now := time.Now()
	windowStart := now.Add(-window)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pipe := s.redisClient.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.Unix(), 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.Unix()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.WithError(err).Error("Rate limit pipeline failed, failing open")
		return &models.RateLimitInfo{
			Limit:     limit,
			Remaining: limit - 1,
			ResetTime: now.Add(window).Unix(),
		}, nil
	}

	remaining := limit - int(countCmd.Val())
	if remaining < 0 {
		remaining = 0
	}

	return &models.RateLimitInfo{
		Limit:     limit,
		Remaining: remaining,
		ResetTime: now.Add(window).Unix(),
	}, nil
}

func (s *RateLimitService) IsAllowed(userID, tier string) (bool, *models.RateLimitInfo, error) {
	info, err := s.CheckLimit(userID, tier)
	if err != nil {
		return false, nil, err
	}
	return info.Remaining > 0, info, nil
}

func (s *RateLimitService) limitFor(tier string) int {
	switch tier {
	case models.TierPartner:
		return s.config.Auth.RateLimit.Partner
	case models.TierFleet:
		return s.config.Auth.RateLimit.Fleet
	default:
		return s.config.Auth.RateLimit.Basic
	}
}
