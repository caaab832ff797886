package imageprocessor

import (
	"bytes"

	apperrors "imagefingerprint/errors"
	"imagefingerprint/logging"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// GenerateThumbnail fits img within maxSize x maxSize, keeping the aspect
// ratio and never enlarging, and encodes the result as JPEG.
func GenerateThumbnail(img gocv.Mat, maxSize, quality int) ([]byte, error) {
	if img.Empty() {
		return nil, apperrors.ErrEmptyImage
	}

	src, err := img.ToImage()
	if err != nil {
		return nil, err
	}

	thumb := imaging.Fit(src, maxSize, maxSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// thumbnailOrEmpty degrades a failed thumbnail to an empty one
func thumbnailOrEmpty(img gocv.Mat, opts HashOptions, path string) []byte {
	thumb, err := GenerateThumbnail(img, opts.ThumbnailSize, opts.ThumbnailQuality)
	if err != nil {
		logging.LogWarning("Using empty thumbnail: %v", apperrors.NewThumbnailError(path, err))
		return []byte{}
	}
	return thumb
}
