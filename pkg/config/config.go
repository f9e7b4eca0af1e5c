package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Storage tiers
	Database DatabaseConfig
	Redis    RedisConfig
	Mongo    MongoConfig

	// Upstream market-data provider
	Groww GrowwConfig

	// Pipeline
	Pipeline PipelineConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// DatabaseConfig holds PostgreSQL time-series store configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis cache tier configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// MongoConfig holds the document audit store configuration
type MongoConfig struct {
	URI      string
	Database string
	Enabled  bool
}

// GrowwConfig holds Groww API credentials and client limits
type GrowwConfig struct {
	BaseURL   string
	AuthURL   string
	TOTPSeed  string // base32 seed for one-time codes
	SecretKey string
	ClientID  string

	// Request budget shared by all callers
	RequestsPerSecond int
	RequestsPerMinute int

	// Bulk fetch
	Concurrency int
	MaxRetries  int
	Timeout     time.Duration
}

// PipelineConfig holds orchestrator and scheduler settings
type PipelineConfig struct {
	Interval     time.Duration // recurring extraction interval
	AutoStart    bool
	Concurrency  int // symbol workers per job
	HistorySize  int
	EventLogSize int
	EODSchedule  string // cron spec for the daily end-of-day refresh
}

// Load reads configuration from environment variables.
// This is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		// Mongo
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DB", "stockpulse"),
			Enabled:  getEnvAsBool("MONGO_ENABLED", true),
		},

		// Groww API
		Groww: GrowwConfig{
			BaseURL:           getEnv("GROWW_BASE_URL", "https://api.groww.in"),
			AuthURL:           getEnv("GROWW_AUTH_URL", "https://api.groww.in/v1/token"),
			TOTPSeed:          getEnv("GROWW_TOTP_SEED", ""),
			SecretKey:         getEnv("GROWW_SECRET_KEY", ""),
			ClientID:          getEnv("GROWW_CLIENT_ID", ""),
			RequestsPerSecond: getEnvAsInt("GROWW_REQS_PER_SEC", 10),
			RequestsPerMinute: getEnvAsInt("GROWW_REQS_PER_MIN", 300),
			Concurrency:       getEnvAsInt("GROWW_CONCURRENCY", 5),
			MaxRetries:        getEnvAsInt("GROWW_MAX_RETRIES", 5),
			Timeout:           getEnvAsDuration("GROWW_TIMEOUT", "30s"),
		},

		// Pipeline
		Pipeline: PipelineConfig{
			Interval:     getEnvAsDuration("PIPELINE_INTERVAL", "15m"),
			AutoStart:    getEnvAsBool("PIPELINE_AUTO_START", true),
			Concurrency:  getEnvAsInt("PIPELINE_CONCURRENCY", 5),
			HistorySize:  getEnvAsInt("PIPELINE_HISTORY_SIZE", 100),
			EventLogSize: getEnvAsInt("PIPELINE_EVENT_LOG_SIZE", 1000),
			EODSchedule:  getEnv("PIPELINE_EOD_SCHEDULE", "0 30 18 * * *"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Pipeline.Interval < time.Minute {
		return fmt.Errorf("PIPELINE_INTERVAL must be at least 1m")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
