package config

import (
	"os"
	"strconv"
	"strings"

	"diffex/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Analysis AnalysisConfig
	Report   ReportConfig
	Logging  LoggingConfig
}

// AnalysisConfig holds fit and cross-check settings
type AnalysisConfig struct {
	// Workers bounds concurrent per-probeset fits; 0 means one per CPU
	Workers int

	// CrossCheckTolerance is the maximum absolute disagreement allowed
	// between the vectorized and per-probeset fit routes
	CrossCheckTolerance float64

	// Seed drives synthetic dataset generation
	Seed int64

	// Coding selects the design coding: "treatment" or "means"
	Coding string
}

// ReportConfig holds report output settings
type ReportConfig struct {
	OutputDir string
	Formats   []string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Analysis: *loadAnalysisConfig(),
		Report:   *loadReportConfig(),
		Logging:  *loadLoggingConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		Workers:             getEnvIntOrDefault("DIFFEX_WORKERS", 0),
		CrossCheckTolerance: getEnvFloatOrDefault("DIFFEX_TOLERANCE", 1e-9),
		Seed:                int64(getEnvIntOrDefault("DIFFEX_SEED", 42)),
		Coding:              getEnvOrDefault("DIFFEX_CODING", "treatment"),
	}
}

func loadReportConfig() *ReportConfig {
	formats := strings.Split(getEnvOrDefault("DIFFEX_REPORT_FORMATS", "markdown"), ",")
	for i, f := range formats {
		formats[i] = strings.TrimSpace(f)
	}
	return &ReportConfig{
		OutputDir: getEnvOrDefault("DIFFEX_REPORT_DIR", "./reports"),
		Formats:   formats,
	}
}

func loadLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		Level: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}
}

func validateConfig(config *Config) error {
	if config.Analysis.Workers < 0 {
		return errors.ConfigInvalid("DIFFEX_WORKERS cannot be negative")
	}
	if config.Analysis.CrossCheckTolerance <= 0 {
		return errors.ConfigInvalid("DIFFEX_TOLERANCE must be positive")
	}
	switch config.Analysis.Coding {
	case "treatment", "means":
	default:
		return errors.ConfigInvalid("DIFFEX_CODING must be treatment or means")
	}
	if config.Report.OutputDir == "" {
		return errors.ConfigInvalid("DIFFEX_REPORT_DIR cannot be empty")
	}
	for _, f := range config.Report.Formats {
		switch f {
		case "markdown", "html", "tsv":
		default:
			return errors.ConfigInvalid("unsupported report format: " + f)
		}
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

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
