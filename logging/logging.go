package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	logger  = newLogger(os.Stderr)
	logFile *os.File
	mu      sync.Mutex
	isSetup bool
)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return l
}

// SetupLogger redirects all log output to the given file and enables debug output
func SetupLogger(logFilePath string) error {
	mu.Lock()
	defer mu.Unlock()

	if isSetup {
		return nil
	}

	var err error
	logFile, err = os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	logger.SetOutput(logFile)
	logger.SetLevel(logrus.DebugLevel)
	logger.Infof("--- ImageFingerprint Debug Log Started at %s ---", time.Now().Format(time.RFC3339))

	isSetup = true
	return nil
}

// CloseLogger closes the log file and restores stderr output
func CloseLogger() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logger.Infof("--- ImageFingerprint Debug Log Closed at %s ---", time.Now().Format(time.RFC3339))
		logFile.Close()
		logFile = nil
		logger.SetOutput(os.Stderr)
		isSetup = false
	}
}

// SetLevel sets the minimum level by name ("debug", "info", "warn", "error").
// Unknown names leave the level unchanged.
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("unknown log level %q, keeping %s", level, logger.GetLevel())
		return
	}
	logger.SetLevel(lvl)
}

// SetOutput replaces the log destination
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Logger exposes the underlying logger
func Logger() *logrus.Logger {
	return logger
}

// WithFields creates an entry carrying the given fields
func WithFields(fields logrus.Fields) *logrus.Entry {
	return logger.WithFields(fields)
}

// LogInfo logs an information message
func LogInfo(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

// DebugLog logs a message at debug level
func DebugLog(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

// LogError logs an error message
func LogError(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}

// LogWarning logs a warning message
func LogWarning(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

// LogImageProcessed logs the outcome of a single image
func LogImageProcessed(path string, success bool, errMsg string) {
	if success {
		logger.WithField("path", path).Debug("PROCESSED")
		return
	}
	logger.WithFields(logrus.Fields{
		"path":  path,
		"error": errMsg,
	}).Warn("FAILED")
}
