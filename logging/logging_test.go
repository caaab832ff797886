package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLogImageProcessed(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	SetLevel("debug")
	defer SetLevel("info")

	LogImageProcessed("/photos/a.jpg", false, "bad header")
	LogImageProcessed("/photos/b.jpg", true, "")

	out := buf.String()
	if !strings.Contains(out, "FAILED") || !strings.Contains(out, "bad header") {
		t.Errorf("Expected failure line with error, got %q", out)
	}
	if !strings.Contains(out, "PROCESSED") || !strings.Contains(out, "b.jpg") {
		t.Errorf("Expected processed line, got %q", out)
	}
}

func TestSetLevel_Unknown(t *testing.T) {
	SetLevel("warn")
	defer SetLevel("info")

	SetLevel("verbose")
	if got := Logger().GetLevel(); got != logrus.WarnLevel {
		t.Errorf("Expected level to stay warn, got %s", got)
	}
}

func TestSetupLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fingerprint.log")
	if err := SetupLogger(path); err != nil {
		t.Fatalf("SetupLogger failed: %v", err)
	}
	DebugLog("hashing %s", "c.png")
	CloseLogger()
	SetLevel("info")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "hashing c.png") {
		t.Errorf("Expected debug line in log file, got %q", string(data))
	}
}
