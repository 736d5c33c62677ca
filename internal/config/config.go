package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// NHL web API (gamecenter boxscore/play-by-play/schedule)
	NHLAPIBaseURL string        `envconfig:"NHL_API_BASE_URL" default:"https://api-web.nhle.com"`
	NHLAPITimeout time.Duration `envconfig:"NHL_API_TIMEOUT" default:"15s"`

	// Legacy stats API: secondary, authoritative source for team-level
	// power-play counts. Optional; the extractor falls back to the
	// play-by-play derivation when it is unreachable.
	LegacyAPIBaseURL string `envconfig:"LEGACY_API_BASE_URL" default:"https://statsapi.web.nhl.com"`
	LegacyAPIEnabled bool   `envconfig:"LEGACY_API_ENABLED" default:"true"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"nhl_dfs"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"nhl_user"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Season to ingest, in API form (e.g. 20252026)
	Season string `envconfig:"SEASON" default:"20252026"`

	// Fetch pipeline
	FetchWorkers           int           `envconfig:"FETCH_WORKERS" default:"5"`
	FetchJitterMin         time.Duration `envconfig:"FETCH_JITTER_MIN" default:"1s"`
	FetchJitterMax         time.Duration `envconfig:"FETCH_JITTER_MAX" default:"2s"`
	FetchBaseDelay         time.Duration `envconfig:"FETCH_BASE_DELAY" default:"2s"`
	FetchBackoffMultiplier float64       `envconfig:"FETCH_BACKOFF_MULTIPLIER" default:"2.0"`
	FetchMaxRetries        int           `envconfig:"FETCH_MAX_RETRIES" default:"2"`

	// Index computation
	RollingWindow int     `envconfig:"ROLLING_WINDOW" default:"5"`
	VenueBoost    float64 `envconfig:"VENUE_BOOST" default:"0.08"`

	// Scheduler
	EnableScheduler    bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	InitialRunEnabled  bool   `envconfig:"INITIAL_RUN_ENABLED" default:"true"`
	NightlyRefreshCron string `envconfig:"NIGHTLY_REFRESH_CRON" default:"0 2 * * *"`

	// Caching TTL (in seconds)
	CacheTTLLeagueContext int `envconfig:"CACHE_TTL_LEAGUE_CONTEXT" default:"3600"`
	CacheTTLRankings      int `envconfig:"CACHE_TTL_RANKINGS" default:"3600"`
	CacheTTLSlate         int `envconfig:"CACHE_TTL_SLATE" default:"900"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	if c.FetchWorkers < 1 {
		return fmt.Errorf("FETCH_WORKERS must be at least 1")
	}

	if c.FetchJitterMax < c.FetchJitterMin {
		return fmt.Errorf("FETCH_JITTER_MAX must not be below FETCH_JITTER_MIN")
	}

	if c.FetchBackoffMultiplier < 1.0 {
		return fmt.Errorf("FETCH_BACKOFF_MULTIPLIER must be at least 1.0")
	}

	if c.RollingWindow < 1 {
		return fmt.Errorf("ROLLING_WINDOW must be at least 1")
	}

	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseName,
		c.DatabaseSSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
