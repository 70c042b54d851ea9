// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
type AppConfig struct {
	Port      string
	SecretKey string

	RedisHost     string
	RedisPort     string
	RedisDB       int
	RedisPassword string
	CacheType     string // "redis" or "memory"

	Env string // development, testing, production

	MaxPages              int
	MaxConcurrentRequests int
	RequestTimeout        time.Duration
	RateLimitRPS          float64
	RateLimitBurst        int
	ProgressTickInterval  time.Duration
	MaxContentBytes       int64
	SearchCacheTTL        time.Duration
	ContentCacheTTL       time.Duration
	StateTTL              time.Duration
	StateSweepInterval    time.Duration
}

// LoadConfig loads configuration from a .env file (if present) and the
// environment.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Info: Could not load .env file: %v (this is ok if using environment variables)\n", err)
	}

	env := getEnv("APP_ENV", "development")

	cfg := &AppConfig{
		Port:          getEnv("PORT", "5000"),
		SecretKey:     os.Getenv("SECRET_KEY"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		CacheType:     getEnv("CACHE_TYPE", "memory"),
		Env:           env,

		RateLimitRPS:         getEnvAsFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst:       getEnvAsInt("RATE_LIMIT_BURST", 5),
		ProgressTickInterval: 500 * time.Millisecond,
		MaxContentBytes:      500_000,
		SearchCacheTTL:       24 * time.Hour,
		ContentCacheTTL:      24 * time.Hour,
		StateTTL:             3600 * time.Second,
		StateSweepInterval:   60 * time.Second,
	}

	applyPreset(cfg, env)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyPreset sets the environment-specific defaults described in spec §6.
func applyPreset(cfg *AppConfig, env string) {
	switch env {
	case "testing":
		cfg.MaxPages = getEnvAsInt("MAX_PAGES", 10)
		cfg.MaxConcurrentRequests = getEnvAsInt("MAX_CONCURRENT_REQUESTS", 5)
		cfg.RequestTimeout = time.Duration(getEnvAsInt("REQUEST_TIMEOUT", 30)) * time.Second
	case "production":
		cfg.MaxPages = getEnvAsInt("MAX_PAGES", 100)
		cfg.MaxConcurrentRequests = getEnvAsInt("MAX_CONCURRENT_REQUESTS", 50)
		cfg.RequestTimeout = time.Duration(getEnvAsInt("REQUEST_TIMEOUT", 60)) * time.Second
	default: // development
		cfg.MaxPages = getEnvAsInt("MAX_PAGES", 100)
		cfg.MaxConcurrentRequests = getEnvAsInt("MAX_CONCURRENT_REQUESTS", 10)
		cfg.RequestTimeout = time.Duration(getEnvAsInt("REQUEST_TIMEOUT", 30)) * time.Second
	}
}

// Validate checks that the configuration is internally consistent.
func (c *AppConfig) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port number: %s", c.Port)
	}

	validCacheTypes := map[string]bool{"redis": true, "memory": true}
	if !validCacheTypes[c.CacheType] {
		return fmt.Errorf("invalid cache type: %s (must be 'redis' or 'memory')", c.CacheType)
	}

	if c.Env == "production" && c.SecretKey == "" {
		fmt.Println("Warning: SECRET_KEY not set in production")
	}

	if c.MaxPages <= 0 {
		return fmt.Errorf("invalid max pages: %d", c.MaxPages)
	}

	return nil
}

// GetPort returns the port as an integer.
func (c *AppConfig) GetPort() int {
	port, _ := strconv.Atoi(c.Port) // already validated in Validate()
	return port
}

// RedisAddr returns the host:port address of the configured Redis instance.
func (c *AppConfig) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// UsesRedis reports whether the redis cache backend is selected.
func (c *AppConfig) UsesRedis() bool {
	return c.CacheType == "redis"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}
