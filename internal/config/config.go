package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported BLOB_BACKEND values.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
	BackendMemory   = "memory"
)

// Config holds all configuration for the movie mood service.
type Config struct {
	Port      string
	LogLevel  slog.Level
	Blob      BlobConfig
	DB        DBConfig
	Redis     RedisConfig
	Badger    BadgerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

// BlobConfig selects and tunes the durable object store.
type BlobConfig struct {
	Backend          string
	Token            string
	Timeout          time.Duration
	FetchConcurrency int
	BreakerFailures  uint32
	BreakerCooldown  time.Duration
}

// Durable reports whether a durable backend is configured. Remote backends
// also need the read/write token, mirroring the blob credential check.
func (b BlobConfig) Durable() bool {
	switch b.Backend {
	case BackendBadger:
		return true
	case BackendRedis, BackendPostgres:
		return b.Token != ""
	default:
		return false
	}
}

// DBConfig holds PostgreSQL configuration.
type DBConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	SSLRootCert string
}

// DSN returns the PostgreSQL connection string.
func (d DBConfig) DSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
	if d.SSLRootCert != "" {
		dsn += fmt.Sprintf(" sslrootcert=%s", d.SSLRootCert)
	}
	return dsn
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// BadgerConfig holds the embedded store location.
type BadgerConfig struct {
	Path string
}

// AuthConfig holds the admin credential pair and token settings.
type AuthConfig struct {
	AdminUsername string
	AdminPassword string
	AdminRole     string
	JWTSecret     string
	TokenTTL      time.Duration
}

// RateLimitConfig bounds vote submissions per client IP.
type RateLimitConfig struct {
	Max           int
	WindowSeconds int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	concurrency, _ := strconv.Atoi(getEnv("BLOB_FETCH_CONCURRENCY", "8"))
	breakerFailures, _ := strconv.Atoi(getEnv("BREAKER_FAILURES", "5"))
	rateLimitMax, _ := strconv.Atoi(getEnv("RATE_LIMIT_MAX", "30"))
	rateLimitWindow, _ := strconv.Atoi(getEnv("RATE_LIMIT_WINDOW_SECONDS", "60"))

	timeout, err := time.ParseDuration(getEnv("BLOB_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid BLOB_TIMEOUT: %w", err)
	}
	cooldown, err := time.ParseDuration(getEnv("BREAKER_COOLDOWN", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid BREAKER_COOLDOWN: %w", err)
	}
	tokenTTL, err := time.ParseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	backend := strings.ToLower(getEnv("BLOB_BACKEND", BackendRedis))
	switch backend {
	case BackendRedis, BackendPostgres, BackendBadger, BackendMemory:
	default:
		return nil, fmt.Errorf("unknown BLOB_BACKEND %q", backend)
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if breakerFailures < 1 {
		breakerFailures = 1
	}

	cfg := &Config{
		Port:     getEnv("SERVER_PORT", "8080"),
		LogLevel: level,
		Blob: BlobConfig{
			Backend:          backend,
			Token:            os.Getenv("BLOB_READ_WRITE_TOKEN"),
			Timeout:          timeout,
			FetchConcurrency: concurrency,
			BreakerFailures:  uint32(breakerFailures),
			BreakerCooldown:  cooldown,
		},
		DB: DBConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        dbPort,
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			DBName:      getEnv("DB_NAME", "movie_mood"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			SSLRootCert: getEnv("DB_SSLROOTCERT", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Badger: BadgerConfig{
			Path: getEnv("BADGER_PATH", "data/blobs"),
		},
		Auth: AuthConfig{
			AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
			AdminPassword: getEnv("ADMIN_PASSWORD", "moviemood123"),
			AdminRole:     getEnv("ADMIN_ROLE", "developer"),
			JWTSecret:     getEnv("JWT_SECRET", "change-me"),
			TokenTTL:      tokenTTL,
		},
		RateLimit: RateLimitConfig{
			Max:           rateLimitMax,
			WindowSeconds: rateLimitWindow,
		},
	}

	if cfg.Auth.JWTSecret == "change-me" {
		slog.Warn("JWT_SECRET not set, using the built-in development secret")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
