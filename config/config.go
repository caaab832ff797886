package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"imagefingerprint/imageprocessor"
	"imagefingerprint/utils"
)

// Config is the process-wide configuration. Defaults come from Default,
// IMAGEFINDER_* environment variables override them and command line flags
// override both.
type Config struct {
	DatabasePath string
	LogFile      string
	LogLevel     string // "debug", "info", "warn", "error"
	Workers      int    // 0 resolves to signalhandler.GetOptimalProcs()
	Threshold    float64

	Hash    imageprocessor.HashOptions
	Weights imageprocessor.Weights
}

// Default returns a Config with the standard hash layout and weights
func Default() Config {
	return Config{
		DatabasePath: utils.GetDefaultDatabasePath(),
		LogFile:      "imagefinder.log",
		LogLevel:     "info",
		Threshold:    imageprocessor.DefaultSearchOptions().Threshold,
		Hash:         imageprocessor.DefaultHashOptions(),
		Weights:      imageprocessor.DefaultWeights(),
	}
}

// LoadFromEnv starts from Default and applies IMAGEFINDER_* overrides.
// Unparseable numeric values keep their default.
func LoadFromEnv() (*Config, error) {
	def := Default()
	cfg := &Config{
		DatabasePath: getEnvOrDefault("IMAGEFINDER_DB", def.DatabasePath),
		LogFile:      getEnvOrDefault("IMAGEFINDER_LOGFILE", def.LogFile),
		LogLevel:     strings.ToLower(getEnvOrDefault("IMAGEFINDER_LOG_LEVEL", def.LogLevel)),
		Workers:      parseIntOrDefault("IMAGEFINDER_WORKERS", def.Workers),
		Threshold:    parseFloatOrDefault("IMAGEFINDER_THRESHOLD", def.Threshold),
		Hash: imageprocessor.HashOptions{
			ColorSize:        parseIntOrDefault("IMAGEFINDER_COLOR_SIZE", def.Hash.ColorSize),
			StructureSize:    parseIntOrDefault("IMAGEFINDER_STRUCTURE_SIZE", def.Hash.StructureSize),
			EdgeSize:         parseIntOrDefault("IMAGEFINDER_EDGE_SIZE", def.Hash.EdgeSize),
			EdgeThreshold:    parseIntOrDefault("IMAGEFINDER_EDGE_THRESHOLD", def.Hash.EdgeThreshold),
			ThumbnailSize:    parseIntOrDefault("IMAGEFINDER_THUMBNAIL_SIZE", def.Hash.ThumbnailSize),
			ThumbnailQuality: parseIntOrDefault("IMAGEFINDER_THUMBNAIL_QUALITY", def.Hash.ThumbnailQuality),
		},
		Weights: imageprocessor.Weights{
			Color:     parseFloatOrDefault("IMAGEFINDER_WEIGHT_COLOR", def.Weights.Color),
			Structure: parseFloatOrDefault("IMAGEFINDER_WEIGHT_STRUCTURE", def.Weights.Structure),
			Edge:      parseFloatOrDefault("IMAGEFINDER_WEIGHT_EDGE", def.Weights.Edge),
			Content:   parseFloatOrDefault("IMAGEFINDER_WEIGHT_CONTENT", def.Weights.Content),
		},
	}

	if err := Validate(*cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns an error if the configuration is inconsistent
func Validate(c Config) error {
	if c.DatabasePath == "" {
		return fmt.Errorf("config: database path must not be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must not be negative (got %d)", c.Workers)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("config: threshold must be between 0 and 1 (got %g)", c.Threshold)
	}
	if err := c.Hash.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
