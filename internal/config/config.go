package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Neo4j          Neo4jConfig          `mapstructure:"neo4j"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	Auth           AuthConfig           `mapstructure:"auth"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Monitoring     MonitoringConfig     `mapstructure:"monitoring"`
	Security       SecurityConfig       `mapstructure:"security"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	Hot  RedisInstanceConfig `mapstructure:"hot"`
	Warm RedisInstanceConfig `mapstructure:"warm"`
}

type RedisInstanceConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Neo4j is optional; when URL is empty peer discovery stays on PostgreSQL.
type Neo4jConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topics  struct {
		Feedback string `mapstructure:"feedback"`
	} `mapstructure:"topics"`
}

type AuthConfig struct {
	JWTSecret string            `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration     `mapstructure:"token_ttl"`
	APIKeys   map[string]string `mapstructure:"api_keys"` // partner key -> tier
	RateLimit RateLimitConfig   `mapstructure:"rate_limit"`
}

// RateLimitConfig holds per-tier request budgets for one sliding window.
type RateLimitConfig struct {
	Basic   int           `mapstructure:"basic"`
	Partner int           `mapstructure:"partner"`
	Fleet   int           `mapstructure:"fleet"`
	Window  time.Duration `mapstructure:"window"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RecommendationConfig carries the hand-tuned scoring model. Weights sum to
// 1.0; boosts are multiplicative.
type RecommendationConfig struct {
	Weights       WeightsConfig       `mapstructure:"weights"`
	Boosts        BoostsConfig        `mapstructure:"boosts"`
	Collaborative CollaborativeConfig `mapstructure:"collaborative"`
	DefaultLimit  int                 `mapstructure:"default_limit"`
	CacheTTL      time.Duration       `mapstructure:"cache_ttl"`
}

type WeightsConfig struct {
	Content       float64 `mapstructure:"content"`
	Collaborative float64 `mapstructure:"collaborative"`
	Popularity    float64 `mapstructure:"popularity"`
	Location      float64 `mapstructure:"location"`
}

type BoostsConfig struct {
	Promotion        float64       `mapstructure:"promotion"`
	NewListing       float64       `mapstructure:"new_listing"`
	NewListingWindow time.Duration `mapstructure:"new_listing_window"`
}

type CollaborativeConfig struct {
	ColdStartScore float64 `mapstructure:"cold_start_score"`
	BaselineScore  float64 `mapstructure:"baseline_score"`
	MinCoBookings  int     `mapstructure:"min_co_bookings"`
	MaxPeers       int     `mapstructure:"max_peers"`
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	// Database defaults
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_time", "15m")
	viper.SetDefault("database.max_lifetime", "1h")
	viper.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	viper.SetDefault("redis.hot.max_retries", 3)
	viper.SetDefault("redis.hot.pool_size", 10)
	viper.SetDefault("redis.hot.timeout", "5s")
	viper.SetDefault("redis.warm.max_retries", 3)
	viper.SetDefault("redis.warm.pool_size", 5)
	viper.SetDefault("redis.warm.timeout", "10s")

	// Kafka defaults
	viper.SetDefault("kafka.topics.feedback", "recommendation-feedback")

	// Auth defaults; partner API keys only ever arrive via config
	viper.SetDefault("auth.token_ttl", "24h")
	viper.SetDefault("auth.rate_limit.basic", 1000)
	viper.SetDefault("auth.rate_limit.partner", 10000)
	viper.SetDefault("auth.rate_limit.fleet", 100000)
	viper.SetDefault("auth.rate_limit.window", "1h")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Scoring model defaults: fixed, hand-tuned weights
	viper.SetDefault("recommendation.weights.content", 0.4)
	viper.SetDefault("recommendation.weights.collaborative", 0.3)
	viper.SetDefault("recommendation.weights.popularity", 0.2)
	viper.SetDefault("recommendation.weights.location", 0.1)
	viper.SetDefault("recommendation.boosts.promotion", 1.10)
	viper.SetDefault("recommendation.boosts.new_listing", 1.05)
	viper.SetDefault("recommendation.boosts.new_listing_window", "720h")
	viper.SetDefault("recommendation.collaborative.cold_start_score", 0.5)
	viper.SetDefault("recommendation.collaborative.baseline_score", 0.3)
	viper.SetDefault("recommendation.collaborative.min_co_bookings", 2)
	viper.SetDefault("recommendation.collaborative.max_peers", 10)
	viper.SetDefault("recommendation.default_limit", 10)
	viper.SetDefault("recommendation.cache_ttl", "15m")

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")

	// Security defaults
	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"*"})
}
