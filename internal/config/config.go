package config

import (
	"os"
	"strconv"

	"leakcheck/domain/core"
)

// Config represents the complete application configuration
type Config struct {
	Audit    AuditConfig
	Server   ServerConfig
	Database DatabaseConfig
	Paths    PathConfig
}

// AuditConfig holds leakage-audit run parameters
type AuditConfig struct {
	Samples      int
	Features     int
	KFeatures    int
	NSplits      int
	NNullReps    int
	TestFraction float64
	EffectSize   float64
	Seed         int64
	Parallelism  int
	SearchLambda bool
}

// ServerConfig holds report server settings
type ServerConfig struct {
	Port    string
	Enabled bool
}

// DatabaseConfig holds optional run-ledger persistence settings
type DatabaseConfig struct {
	URL     string
	Enabled bool
}

// PathConfig holds file system paths
type PathConfig struct {
	ExcelFile string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Audit: AuditConfig{
			Samples:      getEnvIntOrDefault("AUDIT_SAMPLES", 100),
			Features:     getEnvIntOrDefault("AUDIT_FEATURES", 1000),
			KFeatures:    getEnvIntOrDefault("AUDIT_K_FEATURES", 50),
			NSplits:      getEnvIntOrDefault("AUDIT_N_SPLITS", 50),
			NNullReps:    getEnvIntOrDefault("AUDIT_NULL_REPS", 50),
			TestFraction: getEnvFloatOrDefault("AUDIT_TEST_FRACTION", 0.25),
			EffectSize:   getEnvFloatOrDefault("AUDIT_EFFECT_SIZE", 0.0),
			Seed:         getEnvInt64OrDefault("AUDIT_SEED", 42),
			Parallelism:  getEnvIntOrDefault("AUDIT_PARALLELISM", 4),
			SearchLambda: getEnvBoolOrDefault("AUDIT_SEARCH_LAMBDA", false),
		},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			Enabled: getEnvBoolOrDefault("SERVER_ENABLED", false),
		},
		Database: DatabaseConfig{
			URL:     getEnvOrDefault("DATABASE_URL", ""),
			Enabled: os.Getenv("DATABASE_URL") != "",
		},
		Paths: PathConfig{
			ExcelFile: getEnvOrDefault("EXCEL_FILE", ""),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Audit.Samples <= 0 {
		return core.NewConfigurationError("AUDIT_SAMPLES", "must be > 0")
	}
	if config.Audit.Features <= 0 {
		return core.NewConfigurationError("AUDIT_FEATURES", "must be > 0")
	}
	if config.Audit.KFeatures <= 0 || config.Audit.KFeatures > config.Audit.Features {
		return core.NewConfigurationError("AUDIT_K_FEATURES", "must be in [1, AUDIT_FEATURES]")
	}
	if config.Audit.NSplits <= 0 {
		return core.NewConfigurationError("AUDIT_N_SPLITS", "must be > 0")
	}
	if config.Audit.TestFraction <= 0 || config.Audit.TestFraction >= 1 {
		return core.NewConfigurationError("AUDIT_TEST_FRACTION", "must be in (0,1)")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
