package config

import (
	"fmt"
	"math"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Redis configuration (market-data cache backing store)
	Redis RedisConfig

	// Birdeye market-data provider configuration
	Birdeye BirdeyeConfig

	// Discovery feed configuration
	Feed FeedConfig

	// API server configuration
	API APIConfig

	// Pipeline configuration
	Tracker TrackerConfig

	// Scoring and lifecycle defaults (overridable per-cycle via settings store)
	Scoring ScoringConfig

	// Export defaults (overridable per-cycle via settings store)
	Export ExportConfig

	// Logging configuration
	Log LogConfig
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"tracker"`
	Password        string        `envconfig:"DB_PASSWORD" default:"tracker"`
	Name            string        `envconfig:"DB_NAME" default:"token_tracker"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// BirdeyeConfig holds market-data provider settings
type BirdeyeConfig struct {
	BaseURL        string        `envconfig:"BIRDEYE_BASE_URL" default:"https://public-api.birdeye.so"`
	APIKey         string        `envconfig:"BIRDEYE_API_KEY" default:""`
	RequestTimeout time.Duration `envconfig:"BIRDEYE_REQUEST_TIMEOUT" default:"20s"`
	MaxRetries     int           `envconfig:"BIRDEYE_MAX_RETRIES" default:"3"`
	RetryBaseDelay time.Duration `envconfig:"BIRDEYE_RETRY_BASE_DELAY" default:"1s"`
	MaxRetryDelay  time.Duration `envconfig:"BIRDEYE_MAX_RETRY_DELAY" default:"8s"`
	RateLimitRPS   int           `envconfig:"BIRDEYE_RATE_LIMIT_RPS" default:"10"`

	// OverviewTTL bounds how long a cached overview is served without refetch.
	OverviewTTL time.Duration `envconfig:"BIRDEYE_OVERVIEW_TTL" default:"60s"`

	// StaleRetentionFactor keeps expired entries around for the degraded
	// fallback path; physical retention = OverviewTTL * factor.
	StaleRetentionFactor int `envconfig:"BIRDEYE_STALE_RETENTION_FACTOR" default:"10"`
}

// FeedConfig holds discovery feed (PumpPortal) settings
type FeedConfig struct {
	Enabled           bool          `envconfig:"FEED_ENABLED" default:"true"`
	WSURL             string        `envconfig:"FEED_WS_URL" default:"wss://pumpportal.fun/api/data"`
	ReconnectDelay    time.Duration `envconfig:"FEED_RECONNECT_DELAY" default:"1s"`
	MaxReconnectDelay time.Duration `envconfig:"FEED_MAX_RECONNECT_DELAY" default:"30s"`
	ReadTimeout       time.Duration `envconfig:"FEED_READ_TIMEOUT" default:"90s"`
	WriteTimeout      time.Duration `envconfig:"FEED_WRITE_TIMEOUT" default:"10s"`
	PingInterval      time.Duration `envconfig:"FEED_PING_INTERVAL" default:"30s"`
}

// APIConfig holds API server settings
type APIConfig struct {
	Host            string        `envconfig:"API_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"API_PORT" default:"8081"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    int           `envconfig:"API_RATE_LIMIT_RPS" default:"100"`
}

// TrackerConfig holds pipeline cadence and batching settings
type TrackerConfig struct {
	MetricsPort       int           `envconfig:"TRACKER_METRICS_PORT" default:"8080"`
	BatchSize         int           `envconfig:"TRACKER_BATCH_SIZE" default:"50"`
	WorkerCount       int           `envconfig:"TRACKER_WORKER_COUNT" default:"4"`
	JobTimeout        time.Duration `envconfig:"TRACKER_JOB_TIMEOUT" default:"2m"`
	RefreshInterval   time.Duration `envconfig:"TRACKER_REFRESH_INTERVAL" default:"60s"`
	ScoringInterval   time.Duration `envconfig:"TRACKER_SCORING_INTERVAL" default:"60s"`
	LifecycleInterval time.Duration `envconfig:"TRACKER_LIFECYCLE_INTERVAL" default:"60s"`
	ExportInterval    time.Duration `envconfig:"TRACKER_EXPORT_INTERVAL" default:"60s"`
	RetentionInterval time.Duration `envconfig:"TRACKER_RETENTION_INTERVAL" default:"1h"`
	RetentionWindow   time.Duration `envconfig:"TRACKER_RETENTION_WINDOW" default:"2h"`
}

// ScoringConfig holds default scoring and lifecycle thresholds
type ScoringConfig struct {
	WeightTxAccel      float64 `envconfig:"SCORING_WEIGHT_TX_ACCEL" default:"0.25"`
	WeightVolMomentum  float64 `envconfig:"SCORING_WEIGHT_VOL_MOMENTUM" default:"0.25"`
	WeightHolderGrowth float64 `envconfig:"SCORING_WEIGHT_HOLDER_GROWTH" default:"0.25"`
	WeightOrderflow    float64 `envconfig:"SCORING_WEIGHT_ORDERFLOW" default:"0.25"`

	SmoothingAlpha float64       `envconfig:"SCORING_SMOOTHING_ALPHA" default:"0.3"`
	Lookback       time.Duration `envconfig:"SCORING_LOOKBACK" default:"1h"`
	Model          string        `envconfig:"SCORING_MODEL" default:"hybrid_momentum_v1"`

	MinKeepScore           float64       `envconfig:"SCORING_MIN_KEEP_SCORE" default:"0.5"`
	LowScoreDuration       time.Duration `envconfig:"SCORING_LOW_SCORE_DURATION" default:"1h"`
	LowActivityChecks      int           `envconfig:"SCORING_LOW_ACTIVITY_CHECKS" default:"10"`
	LowActivityResetOnPass bool          `envconfig:"SCORING_LOW_ACTIVITY_RESET_ON_PASS" default:"true"`

	MinActivationTxCount   int64         `envconfig:"SCORING_MIN_ACTIVATION_TX_COUNT" default:"300"`
	MinActivationLiquidity float64       `envconfig:"SCORING_MIN_ACTIVATION_LIQUIDITY" default:"500"`
	ArchivalTimeout        time.Duration `envconfig:"SCORING_ARCHIVAL_TIMEOUT" default:"24h"`
}

// ExportConfig holds default export selection settings
type ExportConfig struct {
	MinScore           float64 `envconfig:"EXPORT_MIN_SCORE" default:"0.5"`
	TopCount           int     `envconfig:"EXPORT_TOP_COUNT" default:"3"`
	RequireActivePools bool    `envconfig:"EXPORT_REQUIRE_ACTIVE_POOLS" default:"false"`
	StrategyName       string  `envconfig:"EXPORT_STRATEGY_NAME" default:"dynamic_strategy"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load loads configuration from environment variables and validates it.
// Validation failures are fatal at startup, never silently normalized.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that envconfig cannot express.
func (c *Config) Validate() error {
	sum := c.Scoring.WeightTxAccel + c.Scoring.WeightVolMomentum +
		c.Scoring.WeightHolderGrowth + c.Scoring.WeightOrderflow
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %v", sum)
	}
	if c.Scoring.SmoothingAlpha <= 0 || c.Scoring.SmoothingAlpha > 1 {
		return fmt.Errorf("smoothing alpha must be in (0, 1], got %v", c.Scoring.SmoothingAlpha)
	}
	if c.Birdeye.OverviewTTL <= 0 {
		return fmt.Errorf("overview TTL must be positive, got %v", c.Birdeye.OverviewTTL)
	}
	if c.Birdeye.StaleRetentionFactor < 1 {
		return fmt.Errorf("stale retention factor must be >= 1, got %d", c.Birdeye.StaleRetentionFactor)
	}
	if c.Export.TopCount < 1 {
		return fmt.Errorf("export top count must be >= 1, got %d", c.Export.TopCount)
	}
	if c.Scoring.LowScoreDuration <= 0 {
		return fmt.Errorf("low-score duration must be positive, got %v", c.Scoring.LowScoreDuration)
	}
	if c.Scoring.LowActivityChecks < 1 {
		return fmt.Errorf("low-activity check count must be >= 1, got %d", c.Scoring.LowActivityChecks)
	}
	if c.Scoring.ArchivalTimeout <= 0 {
		return fmt.Errorf("archival timeout must be positive, got %v", c.Scoring.ArchivalTimeout)
	}
	return nil
}
