package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	GRPC        GRPCConfig
	HTTP        HTTPConfig
	Auth        AuthConfig
	Aggregation AggregationConfig
	Orders      OrdersConfig
}

// AppConfig carries environment-wide settings.
type AppConfig struct {
	Env string // "local", "production", ...
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Path string // SQLite database file path
}

// GRPCConfig contains gRPC server settings.
type GRPCConfig struct {
	Address string // e.g. ":50051"
}

// HTTPConfig contains the ops endpoint settings (health, metrics).
type HTTPConfig struct {
	Address string // e.g. ":8080"; empty disables the endpoint
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// AggregationConfig tunes the order aggregation passes.
type AggregationConfig struct {
	Timeout     time.Duration // upper bound for all customer lookups of one pass
	Concurrency int           // max lookups in flight per pass
	NewestFirst bool          // sort resolved rows by createdAt desc
}

// OrdersConfig tunes the status workflow.
type OrdersConfig struct {
	StrictTransitions bool
}

// Load reads configuration from the environment (and a .env file when present).
// JWT_SECRET is mandatory.
func Load() (*Config, error) {
	cfg, err := load("")
	if err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but falls back to a development JWT secret.
// Only use in development.
func LoadWithDefaults() (*Config, error) {
	return load("dev-secret-change-me")
}

func load(defaultSecret string) (*Config, error) {
	_ = godotenv.Load()

	concurrency, err := getEnvInt("AGGREGATION_CONCURRENCY", 16)
	if err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("AGGREGATION_CONCURRENCY must be positive, got %d", concurrency)
	}
	timeout, err := getEnvDuration("AGGREGATION_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	ttl, err := getEnvDuration("JWT_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	newestFirst, err := getEnvBool("AGGREGATION_SORT_NEWEST_FIRST", false)
	if err != nil {
		return nil, err
	}
	strict, err := getEnvBool("ORDER_STRICT_TRANSITIONS", false)
	if err != nil {
		return nil, err
	}

	return &Config{
		App: AppConfig{
			Env: getEnv("APP_ENV", "local"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "grocery.db"),
		},
		GRPC: GRPCConfig{
			Address: getEnv("GRPC_ADDRESS", ":50051"),
		},
		HTTP: HTTPConfig{
			Address: getEnv("HTTP_ADDRESS", ":8080"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", defaultSecret),
			TokenTTL:  ttl,
		},
		Aggregation: AggregationConfig{
			Timeout:     timeout,
			Concurrency: concurrency,
			NewestFirst: newestFirst,
		},
		Orders: OrdersConfig{
			StrictTransitions: strict,
		},
	}, nil
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		return d, nil
	}
	return defaultVal, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	if value, exists := os.LookupEnv(key); exists {
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return false, fmt.Errorf("invalid boolean for %s: %w", key, err)
		}
		return b, nil
	}
	return defaultVal, nil
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{Env: %s, DB: %s, gRPC: %s, HTTP: %s, Aggregation: %s/%d, Auth: *** (masked) ***}",
		c.App.Env, c.Database.Path, c.GRPC.Address, c.HTTP.Address, c.Aggregation.Timeout, c.Aggregation.Concurrency)
}
