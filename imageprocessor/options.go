package imageprocessor

import (
	"fmt"

	apperrors "imagefingerprint/errors"
)

// HashOptions controls grid sizes and thresholds of the hash channels.
// The defaults define the stored wire format; changing them yields
// fingerprints that are not comparable with ones built from the defaults.
type HashOptions struct {
	ColorSize        int // color hash grid, ColorSize x ColorSize bits
	StructureSize    int // structural hash grid, StructureSize x (StructureSize-1) bits
	EdgeSize         int // edge hash grid, (EdgeSize-2)^2 interior bits
	EdgeThreshold    int // neighbour difference sum above which a pixel is an edge
	ThumbnailSize    int // max thumbnail width and height
	ThumbnailQuality int // JPEG quality 1-100
}

// DefaultHashOptions returns the standard hash configuration
func DefaultHashOptions() HashOptions {
	return HashOptions{
		ColorSize:        8,
		StructureSize:    16,
		EdgeSize:         32,
		EdgeThreshold:    30,
		ThumbnailSize:    150,
		ThumbnailQuality: 80,
	}
}

// ColorBits is the length of the color hash
func (o HashOptions) ColorBits() int {
	return o.ColorSize * o.ColorSize
}

// StructureBits is the length of the structural hash
func (o HashOptions) StructureBits() int {
	return o.StructureSize * (o.StructureSize - 1)
}

// EdgeBits is the length of the edge hash
func (o HashOptions) EdgeBits() int {
	inner := o.EdgeSize - 2
	return inner * inner
}

// Validate returns an error if the options cannot produce hashes
func (o HashOptions) Validate() error {
	switch {
	case o.ColorSize < 1:
		return fmt.Errorf("%w: ColorSize must be positive (got %d)", apperrors.ErrInvalidOptions, o.ColorSize)
	case o.StructureSize < 2:
		return fmt.Errorf("%w: StructureSize must be at least 2 (got %d)", apperrors.ErrInvalidOptions, o.StructureSize)
	case o.EdgeSize < 3:
		return fmt.Errorf("%w: EdgeSize must be at least 3 (got %d)", apperrors.ErrInvalidOptions, o.EdgeSize)
	case o.EdgeThreshold < 0:
		return fmt.Errorf("%w: EdgeThreshold must not be negative (got %d)", apperrors.ErrInvalidOptions, o.EdgeThreshold)
	case o.ThumbnailSize < 1:
		return fmt.Errorf("%w: ThumbnailSize must be positive (got %d)", apperrors.ErrInvalidOptions, o.ThumbnailSize)
	case o.ThumbnailQuality < 1 || o.ThumbnailQuality > 100:
		return fmt.Errorf("%w: ThumbnailQuality must be between 1 and 100 (got %d)", apperrors.ErrInvalidOptions, o.ThumbnailQuality)
	}
	return nil
}
