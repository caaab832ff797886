package imageprocessor

import (
	"fmt"
	"sync"

	"imagefingerprint/logging"
	"imagefingerprint/types"

	"github.com/barasher/go-exiftool"
)

// MetadataExtractor reads density and orientation tags through a long running
// exiftool process. A nil or disabled extractor leaves metadata untouched.
type MetadataExtractor struct {
	et    *exiftool.Exiftool
	mutex sync.Mutex
}

// NewMetadataExtractor starts exiftool. It returns an error when the binary is
// missing; callers may continue without tag metadata.
func NewMetadataExtractor() (*MetadataExtractor, error) {
	if !hasExiftool() {
		return nil, fmt.Errorf("exiftool not found in PATH")
	}
	et, err := exiftool.NewExiftool(exiftool.NoPrintConversion())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize exiftool: %w", err)
	}
	return &MetadataExtractor{et: et}, nil
}

// Enrich adds tag-derived attributes for the file at path to meta
func (m *MetadataExtractor) Enrich(path string, meta *types.ImageMetadata) error {
	if m == nil || m.et == nil {
		return nil
	}

	m.mutex.Lock()
	fileInfos := m.et.ExtractMetadata(path)
	m.mutex.Unlock()

	if len(fileInfos) == 0 {
		return fmt.Errorf("no metadata extracted for %s", path)
	}
	info := fileInfos[0]
	if info.Err != nil {
		return info.Err
	}

	if v, err := info.GetFloat("XResolution"); err == nil {
		meta.Density = v
	}
	if v, err := info.GetInt("Orientation"); err == nil {
		meta.Orientation = int(v)
	}
	if meta.BitDepth == 0 {
		if v, err := info.GetInt("BitsPerSample"); err == nil {
			meta.BitDepth = int(v)
		}
	}
	if meta.Channels == 0 {
		if v, err := info.GetInt("ColorComponents"); err == nil {
			meta.Channels = int(v)
		}
	}
	return nil
}

// Close stops the exiftool process
func (m *MetadataExtractor) Close() {
	if m == nil || m.et == nil {
		return
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err := m.et.Close(); err != nil {
		logging.LogWarning("Failed to close exiftool: %v", err)
	}
	m.et = nil
}
