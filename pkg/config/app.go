package config

import (
	"os"
	"strconv"
	"strings"

	chErrors "github.com/streakforge/challenge-engine/pkg/errors"
)

// Store modes.
const (
	StoreModePostgres = "postgres"
	StoreModeMemory   = "memory"
)

// AppConfig holds process settings read from the environment.
type AppConfig struct {
	Port           string
	StoreMode      string
	CatalogPath    string
	RateLimitRPS   float64
	RateLimitBurst int
	MetricsEnabled bool
}

// LoadAppConfigFromEnv reads AppConfig from the environment.
// Unparsable numbers and booleans fall back to their defaults.
func LoadAppConfigFromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:           getEnv("PORT", "8080"),
		StoreMode:      strings.ToLower(getEnv("STORE_MODE", StoreModePostgres)),
		CatalogPath:    getEnv("CATALOG_PATH", ""),
		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 30),
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings for consistency.
func (c *AppConfig) Validate() error {
	switch c.StoreMode {
	case StoreModePostgres, StoreModeMemory:
	default:
		return chErrors.ErrConfigInvalid("STORE_MODE must be 'postgres' or 'memory', got '" + c.StoreMode + "'")
	}
	if c.Port == "" {
		return chErrors.ErrConfigInvalid("PORT cannot be empty")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return chErrors.ErrConfigInvalid("rate limit values must be positive")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *AppConfig) Addr() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}
