// Package config provides configuration management for the wallet sync engine.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all engine configuration
type Config struct {
	API     APIConfig
	Redis   RedisConfig
	Cache   CacheConfig
	Retry   RetryConfig
	Logging LoggingConfig
}

// APIConfig holds remote service configuration
type APIConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	RateLimit      float64 // outbound requests per second
	RateBurst      int
	ActivityPage   int // page size for the activity feed
}

// RedisConfig holds the persistence adapter's key/value store configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// CacheConfig holds staleness and debounce configuration
type CacheConfig struct {
	PortfolioTTL    time.Duration
	TransactionsTTL time.Duration
	WalletsTTL      time.Duration
	NetworksTTL     time.Duration
	Debounce        time.Duration
	SettleDelay     time.Duration // wait after login before the first forced refetch
	KeyPrefix       string
}

// RetryConfig holds fetch retry configuration
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env file is optional - environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		API: APIConfig{
			BaseURL:        getEnv("WALLET_API_BASE_URL", "https://api.wallet.example.com"),
			RequestTimeout: getEnvAsDuration("WALLET_API_TIMEOUT", 20*time.Second),
			RateLimit:      getEnvAsFloat("WALLET_API_RATE_LIMIT", 3.0),
			RateBurst:      getEnvAsInt("WALLET_API_RATE_BURST", 3),
			ActivityPage:   getEnvAsInt("WALLET_API_ACTIVITY_PAGE_SIZE", 50),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			PortfolioTTL:    getEnvAsDuration("CACHE_PORTFOLIO_TTL", 5*time.Minute),
			TransactionsTTL: getEnvAsDuration("CACHE_TRANSACTIONS_TTL", 5*time.Minute),
			WalletsTTL:      getEnvAsDuration("CACHE_WALLETS_TTL", time.Minute),
			NetworksTTL:     getEnvAsDuration("CACHE_NETWORKS_TTL", time.Minute),
			Debounce:        getEnvAsDuration("CACHE_DEBOUNCE", time.Second),
			SettleDelay:     getEnvAsDuration("CACHE_LOGIN_SETTLE_DELAY", 500*time.Millisecond),
			KeyPrefix:       getEnv("CACHE_KEY_PREFIX", "walletsync"),
		},
		Retry: RetryConfig{
			MaxAttempts:  getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			InitialDelay: getEnvAsDuration("RETRY_INITIAL_DELAY", time.Second),
			MaxDelay:     getEnvAsDuration("RETRY_MAX_DELAY", 10*time.Second),
			Multiplier:   getEnvAsFloat("RETRY_MULTIPLIER", 2.0),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
