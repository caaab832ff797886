package errors

import (
	"errors"
	"fmt"
)

// Category classifies failures so callers can decide whether to degrade or drop an item
type Category string

const (
	CategoryDecode    Category = "decode"
	CategoryHash      Category = "hash"
	CategoryThumbnail Category = "thumbnail"
	CategoryWorker    Category = "worker"
	CategoryInput     Category = "input"
	CategoryStorage   Category = "storage"
)

// ProcessingError is the structured error type used throughout the module
type ProcessingError struct {
	Category Category
	Op       string
	Path     string
	Err      error
}

func (e *ProcessingError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s %s: %v", e.Category, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// New creates a ProcessingError
func New(category Category, op, path string, err error) *ProcessingError {
	return &ProcessingError{Category: category, Op: op, Path: path, Err: err}
}

// NewDecodeError reports a source that cannot be read as an image. The whole item fails.
func NewDecodeError(path string, err error) *ProcessingError {
	return New(CategoryDecode, "decode", path, err)
}

// NewHashError reports a single hash channel failure
func NewHashError(channel, path string, err error) *ProcessingError {
	return New(CategoryHash, "hash."+channel, path, err)
}

// NewThumbnailError reports a thumbnail that could not be produced
func NewThumbnailError(path string, err error) *ProcessingError {
	return New(CategoryThumbnail, "thumbnail", path, err)
}

// NewWorkerFault turns a value recovered from a worker panic into an error
func NewWorkerFault(path string, recovered interface{}) *ProcessingError {
	return New(CategoryWorker, "worker", path, fmt.Errorf("panic: %v", recovered))
}

// IsCategory reports whether err belongs to the given category
func IsCategory(err error, cat Category) bool {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Category == cat
	}
	return false
}

// IsDecodeError reports whether err is a whole-item decode failure
func IsDecodeError(err error) bool {
	return IsCategory(err, CategoryDecode)
}

// IsWorkerFault reports whether err came from a crashed worker
func IsWorkerFault(err error) bool {
	return IsCategory(err, CategoryWorker)
}

// IsRecoverable reports whether the record can still be produced despite err
func IsRecoverable(err error) bool {
	return IsCategory(err, CategoryHash) || IsCategory(err, CategoryThumbnail)
}

// Sentinel errors for common failure modes
var (
	ErrEmptyImage     = errors.New("image is empty")
	ErrEmptyInput     = errors.New("empty input")
	ErrUnknownTask    = errors.New("unknown task type")
	ErrBatchStarted   = errors.New("batch already started")
	ErrInvalidOptions = errors.New("invalid options")
)
