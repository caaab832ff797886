package imageprocessor

import (
	"path/filepath"
	"sort"
	"strings"
)

// FormatType represents a known image format type
type FormatType string

// Known image format constants
const (
	FormatUnknown FormatType = "unknown"
	FormatJPEG    FormatType = "jpeg"
	FormatPNG     FormatType = "png"
	FormatGIF     FormatType = "gif"
	FormatTIFF    FormatType = "tiff"
	FormatRAW     FormatType = "raw"
	FormatBMP     FormatType = "bmp"
	FormatWEBP    FormatType = "webp"
	FormatCR2     FormatType = "cr2"
	FormatCR3     FormatType = "cr3"
	FormatNEF     FormatType = "nef"
	FormatARW     FormatType = "arw"
	FormatDNG     FormatType = "dng"
)

// Map of extensions to format types
var formatExtensions = map[string]FormatType{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
	".gif":  FormatGIF,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
	".bmp":  FormatBMP,
	".webp": FormatWEBP,

	// RAW formats
	".raw": FormatRAW,
	".cr2": FormatCR2,
	".cr3": FormatCR3,
	".nef": FormatNEF,
	".arw": FormatARW,
	".dng": FormatDNG,
	".raf": FormatRAW,
	".nrw": FormatRAW,
	".srf": FormatRAW,
	".orf": FormatRAW,
	".rw2": FormatRAW,
	".pef": FormatRAW,
}

// IsImageFile checks if a file is a supported image based on extension
func IsImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, supported := formatExtensions[ext]
	return supported
}

// GetFileFormat returns the format type based on file extension
func GetFileFormat(path string) FormatType {
	ext := strings.ToLower(filepath.Ext(path))
	format, exists := formatExtensions[ext]
	if !exists {
		return FormatUnknown
	}
	return format
}

// IsRawFormat checks if a file is in a camera RAW format
func IsRawFormat(path string) bool {
	return isRaw(GetFileFormat(path))
}

func isRaw(format FormatType) bool {
	switch format {
	case FormatRAW, FormatCR2, FormatCR3, FormatNEF, FormatARW, FormatDNG:
		return true
	}
	return false
}

// formatFromDecoderName maps the name reported by image.DecodeConfig
func formatFromDecoderName(name string) FormatType {
	switch strings.ToLower(name) {
	case "jpeg":
		return FormatJPEG
	case "png":
		return FormatPNG
	case "gif":
		return FormatGIF
	case "tiff":
		return FormatTIFF
	case "bmp":
		return FormatBMP
	case "webp":
		return FormatWEBP
	}
	return FormatUnknown
}

// GetSupportedExtensions returns all supported image file extensions, sorted
func GetSupportedExtensions() []string {
	extensions := make([]string, 0, len(formatExtensions))
	for ext := range formatExtensions {
		extensions = append(extensions, ext)
	}
	sort.Strings(extensions)
	return extensions
}
