package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mspacademy/labtrack/pkg/observability"
	"github.com/mspacademy/labtrack/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage storage.Config

	// Auth configuration
	Auth AuthConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// CookieSecure controls the Secure attribute on session cookies.
	CookieSecure bool
}

// AuthConfig holds session, CSRF and rate limiting settings
type AuthConfig struct {
	// SessionTTL is the default session lifetime.
	SessionTTL time.Duration
	// RememberMeTTL is the session lifetime when remember-me is requested.
	RememberMeTTL time.Duration
	// CSRFTTL is the lifetime of an unused CSRF token.
	CSRFTTL time.Duration
	// BcryptCost is the bcrypt work factor for password hashing.
	BcryptCost int
	// MinPasswordLength is enforced at registration.
	MinPasswordLength int

	// RateLimitMax is the max requests per identifier per window.
	RateLimitMax int
	// RateLimitWindow is the sliding window duration.
	RateLimitWindow time.Duration
	// RateLimitFailClosed rejects requests when the store is unreachable
	// instead of the default fail-open behavior.
	RateLimitFailClosed bool

	// AuditRetention is how long security audit events are kept.
	AuditRetention time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	// SessionStatsInterval is the cron cadence for the active-session gauge.
	SessionStatsInterval string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Auth:          loadAuthConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("LABTRACK_HOST", "0.0.0.0"),
		Port:            getEnv("LABTRACK_PORT", "8080"),
		ReadTimeout:     getEnvDuration("LABTRACK_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("LABTRACK_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("LABTRACK_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("LABTRACK_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("LABTRACK_HEALTH_PORT", "9090"),
		CookieSecure:    getEnvBool("LABTRACK_COOKIE_SECURE", false),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	if redisURL := getEnv("LABTRACK_REDIS_URL", ""); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if redisPassword := getEnv("LABTRACK_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB := getEnvInt("LABTRACK_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisMaxRetries := getEnvInt("LABTRACK_REDIS_MAX_RETRIES", 0); redisMaxRetries > 0 {
		cfg.RedisMaxRetries = redisMaxRetries
	}
	if redisPoolSize := getEnvInt("LABTRACK_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		cfg.RedisPoolSize = redisPoolSize
	}

	return cfg
}

// loadAuthConfig loads auth configuration from environment
func loadAuthConfig() AuthConfig {
	return AuthConfig{
		SessionTTL:          getEnvDuration("LABTRACK_SESSION_TTL", 24*time.Hour),
		RememberMeTTL:       getEnvDuration("LABTRACK_REMEMBER_ME_TTL", 30*24*time.Hour),
		CSRFTTL:             getEnvDuration("LABTRACK_CSRF_TTL", time.Hour),
		BcryptCost:          getEnvInt("LABTRACK_BCRYPT_COST", 0),
		MinPasswordLength:   getEnvInt("LABTRACK_MIN_PASSWORD_LENGTH", 8),
		RateLimitMax:        getEnvInt("LABTRACK_RATE_LIMIT_MAX", 100),
		RateLimitWindow:     getEnvDuration("LABTRACK_RATE_LIMIT_WINDOW", time.Minute),
		RateLimitFailClosed: getEnvBool("LABTRACK_RATE_LIMIT_FAIL_CLOSED", false),
		AuditRetention:      getEnvDuration("LABTRACK_AUDIT_RETENTION", 30*24*time.Hour),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:             parseLogLevel(getEnv("LABTRACK_LOG_LEVEL", "info")),
		MetricsEnabled:       getEnvBool("LABTRACK_METRICS_ENABLED", true),
		SessionStatsInterval: getEnv("LABTRACK_SESSION_STATS_INTERVAL", "@every 1m"),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Storage.RedisURL == "" {
		return fmt.Errorf("redis URL is required")
	}

	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.Auth.RememberMeTTL < c.Auth.SessionTTL {
		return fmt.Errorf("remember-me TTL must not be shorter than the session TTL")
	}
	if c.Auth.CSRFTTL <= 0 || c.Auth.CSRFTTL > time.Hour {
		return fmt.Errorf("CSRF TTL must be positive and at most one hour")
	}
	if c.Auth.MinPasswordLength < 8 {
		return fmt.Errorf("minimum password length must be at least 8")
	}
	if c.Auth.RateLimitMax <= 0 {
		return fmt.Errorf("rate limit max must be positive")
	}
	if c.Auth.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
