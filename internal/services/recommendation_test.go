package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivekenya/recsys/internal/config"
	"github.com/drivekenya/recsys/internal/messaging"
	"github.com/drivekenya/recsys/internal/recommend"
	"github.com/drivekenya/recsys/pkg/models"
)

type stubSearchStore struct {
	searches []models.SearchRecord
	err      error
}

func (s *stubSearchStore) RecordSearch(_ context.Context, _ uuid.UUID, search models.SearchRecord) error {
	if s.err != nil {
		return s.err
	}
	s.searches = append(s.searches, search)
	return nil
}

type emptyDataAccess struct{}

func (emptyDataAccess) UserAggregates(_ context.Context, userID uuid.UUID) (*models.UserAggregates, error) {
	return &models.UserAggregates{UserID: userID}, nil
}

func (emptyDataAccess) RecentSearches(context.Context, uuid.UUID, int) ([]models.SearchRecord, error) {
	return nil, nil
}

func (emptyDataAccess) AvailableVehicles(context.Context, models.AvailabilityQuery) ([]models.Vehicle, error) {
	return nil, nil
}

func (emptyDataAccess) PeerCoBookings(context.Context, uuid.UUID) ([]models.PeerUser, error) {
	return nil, nil
}

func (emptyDataAccess) PeerVehicleStats(context.Context, []uuid.UUID, []uuid.UUID) ([]models.PeerVehicleStat, error) {
	return nil, nil
}

func (emptyDataAccess) RecordFeedback(context.Context, *models.Feedback) error {
	return nil
}

func newTestRecommendationService(searches SearchStore) *RecommendationService {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	cfg := testAuthConfig()
	cfg.Recommendation = config.RecommendationConfig{
		Weights: config.WeightsConfig{
			Content: 0.4, Collaborative: 0.3, Popularity: 0.2, Location: 0.1,
		},
		Boosts: config.BoostsConfig{
			Promotion: 1.10, NewListing: 1.05, NewListingWindow: 30 * 24 * time.Hour,
		},
		Collaborative: config.CollaborativeConfig{
			ColdStartScore: 0.5, BaselineScore: 0.3, MinCoBookings: 2, MaxPeers: 10,
		},
		DefaultLimit: 10,
		CacheTTL:     15 * time.Minute,
	}

	engine := recommend.NewEngine(&cfg.Recommendation, logger)
	return NewRecommendationService(engine, emptyDataAccess{}, searches, nil, nil, cfg, logger)
}

func TestRecommendationService_RecordSearch(t *testing.T) {
	t.Run("stores the search record", func(t *testing.T) {
		store := &stubSearchStore{}
		service := newTestRecommendationService(store)

		priceMax := 9000.0
		event := &models.SearchEvent{
			UserID:   uuid.New(),
			Category: "suv",
			Location: "Mombasa",
			PriceMax: &priceMax,
		}

		require.NoError(t, service.RecordSearch(context.Background(), event))
		require.Len(t, store.searches, 1)

		assert.Equal(t, "suv", store.searches[0].Category)
		assert.Equal(t, "Mombasa", store.searches[0].Location)
		assert.Equal(t, &priceMax, store.searches[0].PriceMax)
	})

	t.Run("surfaces store failures", func(t *testing.T) {
		store := &stubSearchStore{err: errors.New("connection refused")}
		service := newTestRecommendationService(store)

		err := service.RecordSearch(context.Background(), &models.SearchEvent{UserID: uuid.New()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to record search")
	})
}

func TestRecommendationService_HandleFeedbackEvent(t *testing.T) {
	service := newTestRecommendationService(&stubSearchStore{})

	event := messaging.FeedbackEvent{
		Feedback: models.Feedback{
			UserID:    uuid.New(),
			VehicleID: uuid.New(),
			Value:     1,
		},
		Timestamp: time.Now(),
	}

	// Without a cache the handler has nothing to invalidate; it must still
	// acknowledge so the consumer does not retry or dead-letter the event.
	assert.NoError(t, service.HandleFeedbackEvent(event))
}
