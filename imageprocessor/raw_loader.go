package imageprocessor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"imagefingerprint/logging"
	"imagefingerprint/types"

	"gocv.io/x/gocv"
)

// Embedded previews tried in order, largest first
var previewTags = []string{
	"JpgFromRaw",
	"PreviewImage",
	"OtherImage",
	"ThumbnailImage",
}

const rawExtractTimeout = 30 * time.Second

// RawPreviewDecoder decodes camera RAW files through their embedded JPEG preview
type RawPreviewDecoder struct {
	inner   *DecoderRegistry
	timeout time.Duration
}

// NewRawPreviewDecoder creates a RAW decoder that hands extracted previews to inner
func NewRawPreviewDecoder(inner *DecoderRegistry) *RawPreviewDecoder {
	return &RawPreviewDecoder{inner: inner, timeout: rawExtractTimeout}
}

func (d *RawPreviewDecoder) Name() string { return "raw-preview" }

func (d *RawPreviewDecoder) CanDecode(format FormatType) bool {
	return isRaw(format)
}

func (d *RawPreviewDecoder) Decode(data []byte) (gocv.Mat, types.ImageMetadata, error) {
	for _, tag := range previewTags {
		preview, err := d.extractPreview(data, tag)
		if err != nil || len(preview) == 0 {
			continue
		}

		for _, dec := range d.inner.decodersFor(FormatJPEG) {
			mat, meta, err := dec.Decode(preview)
			if err == nil && !mat.Empty() {
				logging.DebugLog("Decoded RAW through embedded %s", tag)
				return mat, meta, nil
			}
			mat.Close()
		}
	}
	return gocv.NewMat(), types.ImageMetadata{}, fmt.Errorf("no usable embedded preview")
}

// extractPreview pipes the RAW bytes through exiftool and returns the binary tag value
func (d *RawPreviewDecoder) extractPreview(data []byte, tag string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "exiftool", "-b", "-"+tag, "-")
	cmd.Stdin = bytes.NewReader(data)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		logging.DebugLog("exiftool %s extraction failed: %v, stderr: %s", tag, err, stderr.String())
		return nil, err
	}
	return stdout.Bytes(), nil
}

// hasExiftool checks if exiftool is available on the system
func hasExiftool() bool {
	_, err := exec.LookPath("exiftool")
	return err == nil
}
