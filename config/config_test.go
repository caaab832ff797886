package config

import (
	"errors"
	"testing"

	apperrors "imagefingerprint/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Default config is invalid: %v", err)
	}
	if cfg.Hash.ColorBits() != 64 || cfg.Hash.StructureBits() != 240 || cfg.Hash.EdgeBits() != 900 {
		t.Errorf("Unexpected default hash layout %+v", cfg.Hash)
	}
	if cfg.Threshold != 0.85 {
		t.Errorf("Expected default threshold 0.85, got %g", cfg.Threshold)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IMAGEFINDER_DB", "/tmp/custom.db")
	t.Setenv("IMAGEFINDER_LOG_LEVEL", "DEBUG")
	t.Setenv("IMAGEFINDER_WORKERS", "3")
	t.Setenv("IMAGEFINDER_THRESHOLD", "0.7")
	t.Setenv("IMAGEFINDER_WEIGHT_CONTENT", "0")
	t.Setenv("IMAGEFINDER_EDGE_THRESHOLD", "not-a-number")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}

	if cfg.DatabasePath != "/tmp/custom.db" || cfg.LogLevel != "debug" || cfg.Workers != 3 {
		t.Errorf("Overrides not applied: %+v", cfg)
	}
	if cfg.Threshold != 0.7 || cfg.Weights.Content != 0 || cfg.Weights.Color != 0.4 {
		t.Errorf("Unexpected threshold or weights: %g %+v", cfg.Threshold, cfg.Weights)
	}
	if cfg.Hash.EdgeThreshold != 30 {
		t.Errorf("Unparseable value should keep the default, got %d", cfg.Hash.EdgeThreshold)
	}
}

func TestLoadFromEnvRejectsInvalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"threshold", "IMAGEFINDER_THRESHOLD", "1.5"},
		{"workers", "IMAGEFINDER_WORKERS", "-2"},
		{"log level", "IMAGEFINDER_LOG_LEVEL", "verbose"},
		{"grid", "IMAGEFINDER_EDGE_SIZE", "2"},
		{"weight", "IMAGEFINDER_WEIGHT_EDGE", "-0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := LoadFromEnv(); err == nil {
				t.Errorf("Expected %s=%s to be rejected", tt.key, tt.value)
			}
		})
	}
}

func TestValidateWrapsOptionErrors(t *testing.T) {
	cfg := Default()
	cfg.Hash.ColorSize = 0
	if err := Validate(cfg); !errors.Is(err, apperrors.ErrInvalidOptions) {
		t.Errorf("Expected ErrInvalidOptions, got %v", err)
	}
}
