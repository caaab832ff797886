package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultThreshold is used when no valid threshold is given
const DefaultThreshold = 0.85

// GetDefaultDatabasePath returns the default path for the database file
func GetDefaultDatabasePath() string {
	exePath, err := os.Executable()
	if err != nil {
		// Fallback to current directory if executable path can't be determined
		return "images.db"
	}
	return filepath.Join(filepath.Dir(exePath), "images.db")
}

// PrintUsage writes the command-line usage instructions to w
func PrintUsage(w io.Writer, prog string) {
	fmt.Fprintf(w, "Usage:\n")
	fmt.Fprintf(w, "  %s scan --folder=PATH [--database=PATH] [--prefix=NAME] [--force] [--no-thumbnails] [--workers=N] [--debug] [--logfile=PATH]\n", prog)
	fmt.Fprintf(w, "  %s search --image=PATH [--database=PATH] [--threshold=VALUE] [--prefix=NAME] [--limit=N]\n", prog)
	fmt.Fprintf(w, "  %s compare IMAGE_A IMAGE_B\n", prog)
	fmt.Fprintf(w, "  %s task --type=TYPE --image=PATH\n", prog)
	fmt.Fprintf(w, "  %s stats [--database=PATH] [--prefix=NAME]\n", prog)
	fmt.Fprintf(w, "\nParameters:\n")
	fmt.Fprintf(w, "  --folder        : Path to folder containing images to scan\n")
	fmt.Fprintf(w, "  --image         : Path to query image\n")
	fmt.Fprintf(w, "  --database      : Path to database file (default: %s)\n", GetDefaultDatabasePath())
	fmt.Fprintf(w, "  --prefix        : Source prefix for scanning/filtering results\n")
	fmt.Fprintf(w, "  --force         : Re-fingerprint images even when unchanged since the last scan\n")
	fmt.Fprintf(w, "  --no-thumbnails : Skip thumbnail generation during scan\n")
	fmt.Fprintf(w, "  --workers       : Number of concurrent workers (default: 3/4 of the CPUs)\n")
	fmt.Fprintf(w, "  --threshold     : Similarity threshold for search (0.0-1.0, default: %.2f)\n", DefaultThreshold)
	fmt.Fprintf(w, "  --limit         : Maximum number of matches to show (default: 5, 0 for all)\n")
	fmt.Fprintf(w, "  --type          : Task type: processImage, generateThumbnail, extractMetadata, calculateHash\n")
	fmt.Fprintf(w, "  --debug         : Enable debug mode (logs detailed information)\n")
	fmt.Fprintf(w, "  --logfile       : Specify custom log file path (default: imagefinder.log)\n")
	fmt.Fprintf(w, "\nEnvironment:\n")
	fmt.Fprintf(w, "  IMAGEFINDER_DB, IMAGEFINDER_LOGFILE, IMAGEFINDER_LOG_LEVEL, IMAGEFINDER_WORKERS, IMAGEFINDER_THRESHOLD\n")
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  %s scan --folder=/path/to/images --prefix=ExternalDrive1 --debug\n", prog)
	fmt.Fprintf(w, "  %s search --image=/path/to/query.jpg --threshold=0.9\n", prog)
}

// ParseThreshold parses and validates the threshold value from string
func ParseThreshold(thresholdStr string) (float64, error) {
	parsedThreshold, err := strconv.ParseFloat(thresholdStr, 64)
	if err != nil || parsedThreshold < 0 || parsedThreshold > 1 {
		return DefaultThreshold, fmt.Errorf("invalid threshold value '%s', using default (%.2f)", thresholdStr, DefaultThreshold)
	}
	return parsedThreshold, nil
}
