package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/drivekenya/recsys/internal/config"
	"github.com/drivekenya/recsys/internal/database"
	"github.com/drivekenya/recsys/internal/handlers"
	"github.com/drivekenya/recsys/internal/middleware"
	"github.com/drivekenya/recsys/internal/services"
)

type App struct {
	config       *config.Config
	logger       *logrus.Logger
	db           *database.Database
	services     *services.Services
	handlers     *handlers.Handlers
	router       *gin.Engine
	stopConsumer context.CancelFunc
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	svcs, err := services.New(cfg, app.logger, db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = svcs

	app.handlers, err = handlers.New(cfg, app.logger, svcs)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	app.setupRouter()
	app.startFeedbackConsumer()

	return app, nil
}

// startFeedbackConsumer drains the feedback topic in the background so cached
// results go stale the moment any producer reports feedback, not just this
// instance.
func (a *App) startFeedbackConsumer() {
	if a.services.MessageBus == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.stopConsumer = cancel

	go func() {
		err := a.services.MessageBus.ConsumeFeedback(ctx, a.services.Recommendation.HandleFeedbackEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.WithError(err).Error("Feedback consumer stopped")
		}
	}()
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if a.stopConsumer != nil {
		a.stopConsumer()
	}

	if a.services.MessageBus != nil {
		if err := a.services.MessageBus.Close(); err != nil {
			a.logger.WithError(err).Error("Error closing message bus")
		}
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))

	// Health and metrics require no auth
	router.GET("/health", a.handlers.Health.Check)
	if a.config.Monitoring.Enabled {
		router.GET(a.config.Monitoring.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	router.POST("/api/v1/auth/token", a.handlers.Auth.Token)

	api := router.Group("/api/v1")
	{
		api.Use(middleware.Auth(a.services.Auth, a.logger))
		api.Use(middleware.RateLimit(a.services.RateLimit, a.logger))

		api.GET("/recommendations/:userId", a.handlers.Recommendation.Get)
		api.POST("/feedback", a.handlers.Recommendation.SubmitFeedback)
		api.POST("/searches", a.handlers.Recommendation.RecordSearch)
	}

	a.router = router
}
