package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/drivekenya/recsys/internal/config"
	"github.com/drivekenya/recsys/internal/database"
)

// HealthService checks the engine's backing stores. PostgreSQL and the hot
// Redis tier are critical; Neo4j and the warm cache only degrade quality.
type HealthService struct {
	config *config.Config
	logger *logrus.Logger
	db     *database.Database

	healthCheckStatus *prometheus.GaugeVec
	poolMetrics       *prometheus.GaugeVec
}

type HealthStatus struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Services    map[string]string `json:"services"`
	Critical    []string          `json:"critical_failures,omitempty"`
	NonCritical []string          `json:"non_critical_failures,omitempty"`
}

func NewHealthService(cfg *config.Config, logger *logrus.Logger, db *database.Database) *HealthService {
	hs := &HealthService{
		config: cfg,
		logger: logger,
		db:     db,
	}

	hs.healthCheckStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "recsys_health_check_status",
		Help: "Health check status (1 = healthy, 0 = unhealthy)",
	}, []string{"service"})

	hs.poolMetrics = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "recsys_db_connection_pool",
		Help: "PostgreSQL connection pool state",
	}, []string{"state"})

	for _, collector := range []prometheus.Collector{hs.healthCheckStatus, hs.poolMetrics} {
		if err := prometheus.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				logger.WithError(err).Warn("Failed to register health metric")
			}
		}
	}

	go hs.collectPoolMetrics()

	return hs
}

func (s *HealthService) CheckHealth() *HealthStatus {
	status := &HealthStatus{
		Timestamp: time.Now(),
		Services:  make(map[string]string),
	}

	criticalServices := map[string]func() error{
		"postgresql": s.checkPostgreSQL,
		"redis_hot":  s.checkRedisHot,
	}

	nonCriticalServices := map[string]func() error{
		"redis_warm": s.checkRedisWarm,
	}
	if s.db.Neo4j != nil {
		nonCriticalServices["neo4j"] = s.checkNeo4j
	}

	allCriticalHealthy := true
	for name, checkFunc := range criticalServices {
		if err := checkFunc(); err != nil {
			status.Services[name] = "unhealthy"
			status.Critical = append(status.Critical, name)
			allCriticalHealthy = false
			s.logger.WithError(err).Errorf("Critical service %s is unhealthy", name)
			s.updateMetric(name, false)
		} else {
			status.Services[name] = "healthy"
			s.updateMetric(name, true)
		}
	}

	for name, checkFunc := range nonCriticalServices {
		if err := checkFunc(); err != nil {
			status.Services[name] = "unhealthy"
			status.NonCritical = append(status.NonCritical, name)
			s.logger.WithError(err).Warnf("Non-critical service %s is unhealthy", name)
			s.updateMetric(name, false)
		} else {
			status.Services[name] = "healthy"
			s.updateMetric(name, true)
		}
	}

	switch {
	case !allCriticalHealthy:
		status.Status = "unhealthy"
	case len(status.NonCritical) > 0:
		status.Status = "degraded"
	default:
		status.Status = "healthy"
	}

	return status
}

func (s *HealthService) checkPostgreSQL() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.db.PG.Ping(ctx)
}

func (s *HealthService) checkNeo4j() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.db.Neo4j.VerifyConnectivity(ctx)
}

func (s *HealthService) checkRedisHot() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.db.Redis.Hot.Ping(ctx).Err()
}

func (s *HealthService) checkRedisWarm() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.db.Redis.Warm.Ping(ctx).Err()
}

func (s *HealthService) collectPoolMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if s.db == nil || s.db.PG == nil {
			continue
		}
		stats := s.db.PG.Stat()
		s.poolMetrics.WithLabelValues("acquired").Set(float64(stats.AcquiredConns()))
		s.poolMetrics.WithLabelValues("idle").Set(float64(stats.IdleConns()))
		s.poolMetrics.WithLabelValues("max").Set(float64(stats.MaxConns()))
		s.poolMetrics.WithLabelValues("total").Set(float64(stats.TotalConns()))
	}
}

func (s *HealthService) updateMetric(serviceName string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	s.healthCheckStatus.WithLabelValues(serviceName).Set(value)
}
