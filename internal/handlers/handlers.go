package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/drivekenya/recsys/internal/config"
	"github.com/drivekenya/recsys/internal/services"
	"github.com/drivekenya/recsys/internal/validation"
)

type Handlers struct {
	Health         *HealthHandler
	Auth           *AuthHandler
	Recommendation *RecommendationHandler
}

func New(cfg *config.Config, logger *logrus.Logger, services *services.Services) (*Handlers, error) {
	schemaValidator, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, err
	}

	return &Handlers{
		Health:         NewHealthHandler(logger, services.Health),
		Auth:           NewAuthHandler(services.Auth, cfg, logger),
		Recommendation: NewRecommendationHandler(services.Recommendation, schemaValidator, logger),
	}, nil
}
