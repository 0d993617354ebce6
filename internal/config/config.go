package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
)

// Config holds the application configuration.
type Config struct {
	// Server settings
	ServerPort string

	// OpenTelemetry settings
	TelemetryEnabled bool
	OTLPEndpoint     string
	ServiceName      string
	Environment      string

	Store StoreConfig
	Cache CacheConfig
	Auth  AuthConfig
}

type StoreConfig struct {
	Driver          string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	Timeout         time.Duration
}

// CacheConfig enables the Redis list cache when Addr is set.
type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// AuthConfig selects HS256 (JWTSecret) or RS256 via JWKS (JWKSURL).
type AuthConfig struct {
	JWTSecret string
	JWKSURL   string
	Audience  string
	Issuer    string
}

// Load reads a .env file if present, then the environment, applying defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		TelemetryEnabled: getEnvAsBool("TELEMETRY_ENABLED", true),
		OTLPEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		ServiceName:      getEnv("OTEL_SERVICE_NAME", "taskboard"),
		Environment:      getEnv("ENVIRONMENT", "development"),
		Store: StoreConfig{
			Driver:          getEnv("STORE_DRIVER", StoreMemory),
			MongoURI:        getEnv("MONGODB_URI", ""),
			MongoDatabase:   getEnv("MONGODB_DATABASE", "taskboard"),
			MongoCollection: getEnv("MONGODB_COLLECTION", "tasks"),
			Timeout:         getEnvAsDuration("STORE_TIMEOUT", 5*time.Second),
		},
		Cache: CacheConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("CACHE_TTL", time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			JWKSURL:   getEnv("JWKS_URL", ""),
			Audience:  getEnv("JWT_AUDIENCE", ""),
			Issuer:    getEnv("JWT_ISSUER", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreMemory:
	case StoreMongo:
		if c.Store.MongoURI == "" {
			return errors.New("MONGODB_URI is required when STORE_DRIVER=mongo")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}

	if c.Auth.JWTSecret == "" && c.Auth.JWKSURL == "" {
		return errors.New("one of JWT_SECRET or JWKS_URL must be set")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
