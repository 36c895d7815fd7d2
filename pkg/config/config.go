package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Replication search defaults
	Replication ReplicationConfig

	// API
	RateLimit RateLimitConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	TTL      time.Duration // 결과 캐시 보관 기간
}

// ReplicationConfig holds defaults for the replication search
type ReplicationConfig struct {
	PriceSource   string // csv, postgres, http
	PriceFile     string
	DataDir       string // API 요청의 file 은 이 디렉터리 안으로 제한
	SubsetSize    int
	Workers       int
	MaxCandidates int     // 0 = unlimited
	MaxCondition  float64 // design matrix condition bound
	ChartPath     string  // "" disables the chart
}

// RateLimitConfig holds the API token bucket settings
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	QuotaPerMinute    int // per client via Redis, 0 = off
}

// Price sources
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
	SourceHTTP     = "http"
)

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			TTL:      getEnvAsDuration("REDIS_RESULT_TTL", "24h"),
		},

		Replication: ReplicationConfig{
			PriceSource:   getEnv("PRICE_SOURCE", SourceCSV),
			PriceFile:     getEnv("PRICE_FILE", ""),
			DataDir:       getEnv("API_DATA_DIR", "data"),
			SubsetSize:    getEnvAsInt("DEFAULT_SUBSET_SIZE", 3),
			Workers:       getEnvAsInt("SEARCH_WORKERS", 1),
			MaxCandidates: getEnvAsInt("SEARCH_MAX_CANDIDATES", 0),
			MaxCondition:  getEnvAsFloat("SEARCH_MAX_CONDITION", 1e10),
			ChartPath:     getEnv("CHART_PATH", "Comparison_chart.png"),
		},

		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("API_RATE_LIMIT", 5),
			Burst:             getEnvAsInt("API_RATE_BURST", 10),
			QuotaPerMinute:    getEnvAsInt("API_QUOTA_PER_MINUTE", 0),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Replication.PriceSource {
	case SourceCSV, SourceHTTP:
	case SourcePostgres:
		// postgres 소스는 DB 필수
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when PRICE_SOURCE=postgres")
		}
	default:
		return fmt.Errorf("PRICE_SOURCE must be one of: csv, postgres, http")
	}

	if c.Replication.Workers < 1 {
		return fmt.Errorf("SEARCH_WORKERS must be >= 1")
	}
	if c.Replication.MaxCandidates < 0 {
		return fmt.Errorf("SEARCH_MAX_CANDIDATES must be >= 0")
	}
	if c.Replication.MaxCondition <= 1 {
		return fmt.Errorf("SEARCH_MAX_CONDITION must be > 1")
	}

	return nil
}

// HasDatabase reports whether a Postgres URL is configured
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
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
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
