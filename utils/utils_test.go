package utils

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseThreshold(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"0.9", 0.9, false},
		{"0", 0, false},
		{"1", 1, false},
		{"1.01", DefaultThreshold, true},
		{"-0.1", DefaultThreshold, true},
		{"high", DefaultThreshold, true},
	}

	for _, tt := range tests {
		got, err := ParseThreshold(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseThreshold(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseThreshold(%q) = %g, want %g", tt.in, got, tt.want)
		}
	}
}

func TestGetDefaultDatabasePath(t *testing.T) {
	if got := GetDefaultDatabasePath(); filepath.Base(got) != "images.db" {
		t.Errorf("Unexpected default database path %q", got)
	}
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf, "imagefinder")
	for _, cmd := range []string{"scan", "search", "compare", "task", "stats"} {
		if !strings.Contains(buf.String(), "imagefinder "+cmd) {
			t.Errorf("Usage does not mention %q", cmd)
		}
	}
}
