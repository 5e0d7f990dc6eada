package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Queue     QueueConfig
	Telemetry TelemetryConfig
	Store     StoreConfig
	RateLimit RateLimitConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig holds cache settings
type CacheConfig struct {
	Enabled bool
	Backend string // "memory" or "redis"
	RuleTTL time.Duration
}

// QueueConfig holds event publishing settings
type QueueConfig struct {
	Type        string // "memory" or "kafka"
	Brokers     []string
	TopicPrefix string
	ClientID    string
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof   bool
	PprofPort     int
	EnableMetrics bool
	MetricsPort   int
}

// StoreConfig selects persistence backends and decision defaults
type StoreConfig struct {
	Backend         string // "memory" or "postgres"
	RegistryBackend string // "memory", "postgres" or "redis"
	RulesFile       string
	StrictRules     bool
	DefaultProduct  string
	DefaultDealer   string
	MaxUploadBytes  int64
}

// RateLimitConfig caps dealer transaction submissions
type RateLimitConfig struct {
	Enabled       bool
	DealerLimit   int64 // submissions per dealer per window
	GlobalLimit   int64 // submissions across all dealers per window
	WindowSeconds int
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "subsidy"),
			User:        getEnv("POSTGRES_USER", "subsidy"),
			Password:    getEnv("POSTGRES_PASSWORD", "subsidy"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Enabled: getEnvBool("CACHE_ENABLED", true),
			Backend: getEnv("CACHE_BACKEND", "memory"),
			RuleTTL: getEnvDuration("RULE_CACHE_TTL", 5*time.Minute),
		},
		Queue: QueueConfig{
			Type:        getEnv("QUEUE_TYPE", "memory"),
			Brokers:     getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			TopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", "subsidy"),
			ClientID:    getEnv("KAFKA_CLIENT_ID", serviceName),
		},
		Telemetry: TelemetryConfig{
			EnablePprof:   getEnvBool("ENABLE_PPROF", false),
			PprofPort:     getEnvInt("PPROF_PORT", 6060),
			EnableMetrics: getEnvBool("ENABLE_METRICS", true),
			MetricsPort:   getEnvInt("METRICS_PORT", 9090),
		},
		Store: StoreConfig{
			Backend:         getEnv("STORE_BACKEND", "memory"),
			RegistryBackend: getEnv("REGISTRY_BACKEND", "memory"),
			RulesFile:       getEnv("RULES_FILE", "data/entitlement_rules.json"),
			StrictRules:     getEnvBool("RULES_STRICT", true),
			DefaultProduct:  getEnv("DEFAULT_PRODUCT", "Urea"),
			DefaultDealer:   getEnv("DEFAULT_DEALER", "D001"),
			MaxUploadBytes:  int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvBool("RATE_LIMIT_ENABLED", false),
			DealerLimit:   int64(getEnvInt("RATE_LIMIT_DEALER", 60)),
			GlobalLimit:   int64(getEnvInt("RATE_LIMIT_GLOBAL", 1000)),
			WindowSeconds: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	switch c.Store.Backend {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unknown store backend: %s", c.Store.Backend)
	}

	switch c.Store.RegistryBackend {
	case "memory", "postgres", "redis":
	default:
		return fmt.Errorf("unknown registry backend: %s", c.Store.RegistryBackend)
	}

	if c.Store.RegistryBackend == "postgres" && c.Store.Backend != "postgres" {
		return fmt.Errorf("postgres registry backend requires STORE_BACKEND=postgres")
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache backend: %s", c.Cache.Backend)
	}

	if c.RateLimit.Enabled && (c.RateLimit.DealerLimit <= 0 || c.RateLimit.WindowSeconds <= 0) {
		return fmt.Errorf("rate limit requires positive dealer limit and window")
	}

	if c.UsesPostgres() {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			return fmt.Errorf("max_conns must be >= min_conns")
		}
	}

	if c.Store.DefaultProduct == "" {
		return fmt.Errorf("default product is required")
	}

	return nil
}

// UsesPostgres reports whether any configured backend needs a database pool
func (c *Config) UsesPostgres() bool {
	return c.Store.Backend == "postgres" || c.Store.RegistryBackend == "postgres"
}

// UsesRedis reports whether any configured component needs a Redis client
func (c *Config) UsesRedis() bool {
	return c.Store.RegistryBackend == "redis" ||
		(c.Cache.Enabled && c.Cache.Backend == "redis") ||
		c.RateLimit.Enabled
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// RedisAddr returns host:port for the Redis client
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
