package services

import (
	"github.com/sirupsen/logrus"

	"github.com/drivekenya/recsys/internal/config"
	"github.com/drivekenya/recsys/internal/database"
	"github.com/drivekenya/recsys/internal/messaging"
	"github.com/drivekenya/recsys/internal/recommend"
	"github.com/drivekenya/recsys/internal/store"
)

type Services struct {
	Auth           *AuthService
	Health         *HealthService
	RateLimit      *RateLimitService
	MessageBus     *messaging.MessageBus
	Recommendation *RecommendationService
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database) (*Services, error) {
	authService := NewAuthService(cfg, logger, db.Redis.Hot)
	healthService := NewHealthService(cfg, logger, db)
	rateLimitService := NewRateLimitService(cfg, logger, db.Redis.Hot)

	// Feedback events are useful but not load-bearing; run without Kafka
	// when no brokers are configured.
	var messageBus *messaging.MessageBus
	if len(cfg.Kafka.Brokers) > 0 {
		var err error
		messageBus, err = messaging.NewMessageBus(cfg, logger)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn("No Kafka brokers configured, feedback events disabled")
	}

	pgStore := store.NewPostgresStore(db.PG, logger)

	// Peer discovery runs on the booking graph when Neo4j is configured,
	// otherwise on the relational self-join.
	var dataAccess recommend.DataAccess = pgStore
	if db.Neo4j != nil {
		graph := store.NewGraphPeerSource(db.Neo4j, logger)
		dataAccess = store.NewGraphBackedStore(pgStore, graph)
		logger.Info("Peer discovery backed by Neo4j")
	}

	engine := recommend.NewEngine(&cfg.Recommendation, logger)
	recommendationService := NewRecommendationService(
		engine, dataAccess, pgStore, db.Redis.Warm, messageBus, cfg, logger,
	)

	return &Services{
		Auth:           authService,
		Health:         healthService,
		RateLimit:      rateLimitService,
		MessageBus:     messageBus,
		Recommendation: recommendationService,
	}, nil
}
