// Package config loads the engine's runtime tunables from the environment,
// in the same godotenv + typed sub-struct pattern the teacher uses.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all engine configuration.
type Config struct {
	Environment string

	Defaults DefaultsConfig
	CrossRate CrossRateConfig
	Metrics   MetricsConfig
}

// DefaultsConfig holds default values loaded from the environment.
// cmd/microengine uses HedgeCoef as the hedge coefficient of its default
// trading group; CollateralDigits is only validated. When a trading group
// omits a setting, the engine falls back to settings.DefaultCollateralDigits
// and a hedge coefficient of 1.0, not to these values.
type DefaultsConfig struct {
	CollateralDigits int32
	HedgeCoef        float64
}

// CrossRateConfig tunes cross-pair resolution at Initialize time (spec §4.1).
type CrossRateConfig struct {
	ResolveWorkerCount int
}

// MetricsConfig toggles the prometheus HTTP exposition surface.
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// Load loads configuration from environment variables, falling back to
// defaults sized for a single-process deployment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),

		Defaults: DefaultsConfig{
			CollateralDigits: int32(getEnvAsInt("DEFAULT_COLLATERAL_DIGITS", 2)),
			HedgeCoef:        getEnvAsFloat("DEFAULT_HEDGE_COEF", 1.0),
		},

		CrossRate: CrossRateConfig{
			ResolveWorkerCount: getEnvAsInt("CROSS_RATE_WORKER_COUNT", 4),
		},

		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Addr:    getEnv("METRICS_ADDR", ":9090"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants the engine relies on at startup.
func (c *Config) Validate() error {
	if c.CrossRate.ResolveWorkerCount < 1 {
		return fmt.Errorf("CROSS_RATE_WORKER_COUNT must be >= 1, got %d", c.CrossRate.ResolveWorkerCount)
	}
	if c.Defaults.CollateralDigits < 0 {
		return fmt.Errorf("DEFAULT_COLLATERAL_DIGITS must be >= 0, got %d", c.Defaults.CollateralDigits)
	}
	return nil
}

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultVal
	}
	return value
}
