package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/drivekenya/recsys/internal/config"
	"github.com/drivekenya/recsys/internal/messaging"
	"github.com/drivekenya/recsys/internal/recommend"
	"github.com/drivekenya/recsys/pkg/models"
)

var (
	recommendationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recsys_recommendation_requests_total",
		Help: "Total recommendation requests by cache outcome",
	}, []string{"cache"})

	recommendationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recsys_recommendation_duration_seconds",
		Help:    "End-to-end recommendation latency",
		Buckets: prometheus.DefBuckets,
	})

	recommendationResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recsys_recommendation_results",
		Help:    "Number of results returned per request",
		Buckets: []float64{0, 1, 2, 5, 10, 20},
	})

	feedbackEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recsys_feedback_events_total",
		Help: "Feedback submissions by outcome",
	}, []string{"outcome"})

	searchEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recsys_search_events_total",
		Help: "Search event ingestions by outcome",
	}, []string{"outcome"})
)

// SearchStore persists renter search events; the profile builder reads them
// back through DataAccess.RecentSearches.
type SearchStore interface {
	RecordSearch(ctx context.Context, userID uuid.UUID, search models.SearchRecord) error
}

// RecommendationService fronts the scoring engine with a warm-tier Redis
// result cache and wires feedback through PostgreSQL and Kafka. The engine
// itself stays free of caching and transport concerns.
type RecommendationService struct {
	engine   *recommend.Engine
	data     recommend.DataAccess
	searches SearchStore
	cache    *redis.Client
	bus      *messaging.MessageBus
	cfg      *config.Config
	logger   *logrus.Logger
}

func NewRecommendationService(
	engine *recommend.Engine,
	data recommend.DataAccess,
	searches SearchStore,
	cache *redis.Client,
	bus *messaging.MessageBus,
	cfg *config.Config,
	logger *logrus.Logger,
) *RecommendationService {
	return &RecommendationService{
		engine:   engine,
		data:     data,
		searches: searches,
		cache:    cache,
		bus:      bus,
		cfg:      cfg,
		logger:   logger,
	}
}

// Recommend returns the ranked list for a user, served from cache when a
// fresh entry exists for the same request context.
func (s *RecommendationService) Recommend(
	ctx context.Context,
	userID uuid.UUID,
	reqCtx *recommend.RequestContext,
) *models.RecommendationResponse {
	start := time.Now()
	defer func() {
		recommendationDuration.Observe(time.Since(start).Seconds())
	}()

	key := s.cacheKey(userID, reqCtx)

	if cached := s.fromCache(ctx, key); cached != nil {
		recommendationRequests.WithLabelValues("hit").Inc()
		cached.CacheHit = true
		return cached
	}
	recommendationRequests.WithLabelValues("miss").Inc()

	recommendations := s.engine.Recommend(ctx, userID, reqCtx, s.data)
	recommendationResults.Observe(float64(len(recommendations)))

	response := &models.RecommendationResponse{
		UserID:          userID,
		Recommendations: recommendations,
		GeneratedAt:     time.Now(),
	}

	s.toCache(ctx, key, response)
	return response
}

// SubmitFeedback persists feedback, invalidates the user's cached results,
// and emits the event for downstream signal processors. Persistence failure
// is the only hard error; Kafka trouble is logged and absorbed.
func (s *RecommendationService) SubmitFeedback(ctx context.Context, feedback *models.Feedback) error {
	if err := s.data.RecordFeedback(ctx, feedback); err != nil {
		feedbackEvents.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to record feedback: %w", err)
	}

	s.invalidateUser(ctx, feedback.UserID)

	if s.bus != nil {
		if err := s.bus.PublishFeedback(ctx, feedback); err != nil {
			s.logger.WithError(err).WithField("user_id", feedback.UserID).
				Warn("Feedback stored but event publish failed")
		}
	}

	feedbackEvents.WithLabelValues("ok").Inc()
	return nil
}

// RecordSearch stores one search event and drops the user's cached results;
// search history feeds the preference profile, so they are stale now.
func (s *RecommendationService) RecordSearch(ctx context.Context, event *models.SearchEvent) error {
	record := models.SearchRecord{
		Category:  event.Category,
		Location:  event.Location,
		PriceMin:  event.PriceMin,
		PriceMax:  event.PriceMax,
		Timestamp: event.Timestamp,
	}

	if err := s.searches.RecordSearch(ctx, event.UserID, record); err != nil {
		searchEvents.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to record search: %w", err)
	}

	s.invalidateUser(ctx, event.UserID)
	searchEvents.WithLabelValues("ok").Inc()
	return nil
}

// HandleFeedbackEvent reacts to feedback arriving on the bus. Events this
// instance published were already handled at submission; ones from other
// producers still need the user's cached results dropped.
func (s *RecommendationService) HandleFeedbackEvent(event messaging.FeedbackEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.invalidateUser(ctx, event.Feedback.UserID)
	feedbackEvents.WithLabelValues("consumed").Inc()

	s.logger.WithFields(logrus.Fields{
		"user_id":    event.Feedback.UserID,
		"vehicle_id": event.Feedback.VehicleID,
	}).Debug("Consumed feedback event")

	return nil
}

func (s *RecommendationService) cacheKey(userID uuid.UUID, reqCtx *recommend.RequestContext) string {
	if reqCtx == nil {
		reqCtx = &recommend.RequestContext{}
	}
	ctxBytes, _ := json.Marshal(reqCtx)
	return fmt.Sprintf("recommendations:%s:%x", userID.String(), ctxBytes)
}

func (s *RecommendationService) fromCache(ctx context.Context, key string) *models.RecommendationResponse {
	if s.cache == nil {
		return nil
	}

	data, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.WithError(err).Warn("Recommendation cache read failed")
		}
		return nil
	}

	var response models.RecommendationResponse
	if err := json.Unmarshal(data, &response); err != nil {
		s.logger.WithError(err).Warn("Dropping malformed cache entry")
		return nil
	}
	return &response
}

func (s *RecommendationService) toCache(ctx context.Context, key string, response *models.RecommendationResponse) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(response)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to marshal recommendations for cache")
		return
	}

	if err := s.cache.Set(ctx, key, data, s.cfg.Recommendation.CacheTTL).Err(); err != nil {
		s.logger.WithError(err).Warn("Recommendation cache write failed")
	}
}

func (s *RecommendationService) invalidateUser(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}

	pattern := fmt.Sprintf("recommendations:%s:*", userID.String())
	iter := s.cache.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := s.cache.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.WithError(err).Warn("Failed to delete cached recommendations")
		}
	}
	if err := iter.Err(); err != nil {
		s.logger.WithError(err).Warn("Recommendation cache invalidation scan failed")
	}
}
