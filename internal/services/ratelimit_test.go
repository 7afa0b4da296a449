package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivekenya/recsys/pkg/models"
)

func newTestRateLimitService() *RateLimitService {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewRateLimitService(testAuthConfig(), logger, unreachableRedis())
}

func TestRateLimitService_LimitFor(t *testing.T) {
	service := newTestRateLimitService()

	cases := []struct {
		tier string
		want int
	}{
		{tier: models.TierBasic, want: 1000},
		{tier: models.TierPartner, want: 10000},
		{tier: models.TierFleet, want: 100000},
		{tier: "platinum", want: 1000}, // unknown tiers get the basic budget
		{tier: "", want: 1000},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, service.limitFor(tc.tier), "tier %q", tc.tier)
	}
}

func TestRateLimitService_FailsOpenWhenRedisDown(t *testing.T) {
	service := newTestRateLimitService()

	allowed, info, err := service.IsAllowed(uuid.NewString(), models.TierPartner)
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.True(t, allowed, "limiter outage must not block requests")
	assert.Equal(t, 10000, info.Limit)
	assert.Equal(t, 9999, info.Remaining)
	assert.Positive(t, info.ResetTime)
}
