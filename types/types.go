package types

import "time"

// RGB is a single 8-bit colour sample
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hashes holds every signature computed for an image
type Hashes struct {
	Color       string `json:"color"`
	Structure   string `json:"structure"`
	Edge        string `json:"edge"`
	Content     string `json:"content"`
	Fingerprint string `json:"fingerprint"`
}

// ImageMetadata holds decoded-format attributes. Advisory only, never scored.
type ImageMetadata struct {
	Channels    int     `json:"channels"`
	BitDepth    int     `json:"bit_depth"`
	Density     float64 `json:"density,omitempty"`
	Orientation int     `json:"orientation,omitempty"`
	HasAlpha    bool    `json:"has_alpha"`
}

// ImageFingerprint is the record produced for one successfully decoded image.
// It is a plain value: the engine never keeps or mutates it after returning it.
type ImageFingerprint struct {
	Path         string        `json:"path"`
	Name         string        `json:"name,omitempty"`
	Format       string        `json:"format"`
	Width        int           `json:"width"`
	Height       int           `json:"height"`
	SizeBytes    int64         `json:"size_bytes"`
	ModifiedTime time.Time     `json:"modified_time"`
	Hashes       Hashes        `json:"hashes"`
	Metadata     ImageMetadata `json:"metadata"`
	Thumbnail    []byte        `json:"thumbnail,omitempty"`
	AverageColor RGB           `json:"average_color"`
}

// FileStat carries the source-file attributes of an image
type FileStat struct {
	SizeBytes    int64
	ModifiedTime time.Time
}

// ItemOptions tunes the work done for a single item
type ItemOptions struct {
	SkipThumbnail bool
	SkipMetadata  bool
}

// WorkItem is one image submitted to a batch
type WorkItem struct {
	Path    string
	Name    string
	Options ItemOptions
}

// ItemFailure records an item that produced no fingerprint
type ItemFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// BatchState is the lifecycle state of a batch
type BatchState string

const (
	BatchIdle      BatchState = "idle"
	BatchRunning   BatchState = "running"
	BatchCompleted BatchState = "completed"
	BatchCancelled BatchState = "cancelled"
)

// BatchResult is what a batch hands back once it reaches a terminal state.
// Fingerprints are in completion order, not submission order.
type BatchResult struct {
	BatchID      string             `json:"batch_id"`
	State        BatchState         `json:"state"`
	Fingerprints []ImageFingerprint `json:"fingerprints"`
	Failures     []ItemFailure      `json:"failures,omitempty"`
	Completed    int                `json:"completed"`
	Total        int                `json:"total"`
}

// Succeeded returns the number of items that produced a fingerprint
func (r BatchResult) Succeeded() int {
	return len(r.Fingerprints)
}

// Progress is reported once per item accounted for. Result is nil when the
// item failed.
type Progress struct {
	Current int
	Total   int
	Message string
	Item    WorkItem
	Result  *ImageFingerprint
}

// ImageMatch holds a candidate and its similarity to a query
type ImageMatch struct {
	Path         string
	SourcePrefix string
	Score        float64
	Fingerprint  ImageFingerprint
}
