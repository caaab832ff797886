package imageprocessor

import (
	"bytes"
	"fmt"
	"image"
	"strings"
	"sync"

	apperrors "imagefingerprint/errors"
	"imagefingerprint/logging"
	"imagefingerprint/types"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decoder turns encoded file bytes into pixels
type Decoder interface {
	// Name identifies the decoder in logs
	Name() string

	// CanDecode reports whether the decoder handles the format
	CanDecode(format FormatType) bool

	// Decode returns the pixels. The caller owns the returned Mat.
	Decode(data []byte) (gocv.Mat, types.ImageMetadata, error)
}

// DecodedImage is a normalised 8-bit BGR image plus what was learned while decoding
type DecodedImage struct {
	Mat      gocv.Mat
	Format   FormatType
	Width    int
	Height   int
	Metadata types.ImageMetadata
}

// Close releases the pixel buffer
func (d *DecodedImage) Close() {
	d.Mat.Close()
}

// OpenCVDecoder decodes everything the linked OpenCV build understands
type OpenCVDecoder struct{}

func (d *OpenCVDecoder) Name() string { return "opencv" }

func (d *OpenCVDecoder) CanDecode(format FormatType) bool {
	switch format {
	case FormatJPEG, FormatPNG, FormatBMP, FormatTIFF, FormatWEBP:
		return true
	}
	return false
}

func (d *OpenCVDecoder) Decode(data []byte) (gocv.Mat, types.ImageMetadata, error) {
	img, err := gocv.IMDecode(data, gocv.IMReadUnchanged)
	if err != nil {
		return img, types.ImageMetadata{}, err
	}
	if img.Empty() {
		return img, types.ImageMetadata{}, apperrors.ErrEmptyImage
	}
	meta := types.ImageMetadata{
		Channels: img.Channels(),
		BitDepth: bitDepth(img),
		HasAlpha: img.Channels() == 4,
	}
	return img, meta, nil
}

// GoImageDecoder uses Go's image decoders. It also applies EXIF orientation.
type GoImageDecoder struct{}

func (d *GoImageDecoder) Name() string { return "go-image" }

func (d *GoImageDecoder) CanDecode(format FormatType) bool {
	switch format {
	case FormatJPEG, FormatPNG, FormatGIF, FormatBMP, FormatTIFF, FormatWEBP:
		return true
	}
	return false
}

func (d *GoImageDecoder) Decode(data []byte) (gocv.Mat, types.ImageMetadata, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return gocv.NewMat(), types.ImageMetadata{}, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return mat, types.ImageMetadata{}, err
	}

	meta := types.ImageMetadata{Channels: 3, BitDepth: 8}
	if o, ok := img.(interface{ Opaque() bool }); ok && !o.Opaque() {
		meta.HasAlpha = true
		meta.Channels = 4
	}
	return mat, meta, nil
}

// DecoderRegistry tries the registered decoders for a format in registration order
type DecoderRegistry struct {
	decoders []Decoder
	mutex    sync.RWMutex
}

// NewDecoderRegistry creates a registry with the standard decoders. The RAW
// preview decoder is only added when the exiftool binary is on PATH.
func NewDecoderRegistry() *DecoderRegistry {
	r := &DecoderRegistry{}
	r.Register(&OpenCVDecoder{})
	r.Register(&GoImageDecoder{})

	if hasExiftool() {
		r.Register(NewRawPreviewDecoder(r))
		logging.DebugLog("Registered RAW preview decoder")
	} else {
		logging.DebugLog("exiftool not found, RAW formats will not decode")
	}
	return r
}

// Register appends a decoder
func (r *DecoderRegistry) Register(d Decoder) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.decoders = append(r.decoders, d)
}

// decodersFor returns the decoders that accept the format
func (r *DecoderRegistry) decodersFor(format FormatType) []Decoder {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var out []Decoder
	for _, d := range r.decoders {
		if d.CanDecode(format) {
			out = append(out, d)
		}
	}
	return out
}

// DetectFormat uses the extension, falling back to the content for unknown extensions
func DetectFormat(path string, data []byte) FormatType {
	if format := GetFileFormat(path); format != FormatUnknown {
		return format
	}
	if _, name, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		return formatFromDecoderName(name)
	}
	return FormatUnknown
}

// Decode decodes data into a normalised image. Any failure is a DecodeError.
func (r *DecoderRegistry) Decode(path string, data []byte) (*DecodedImage, error) {
	if len(data) == 0 {
		return nil, apperrors.NewDecodeError(path, apperrors.ErrEmptyInput)
	}

	format := DetectFormat(path, data)
	decoders := r.decodersFor(format)
	if len(decoders) == 0 {
		return nil, apperrors.NewDecodeError(path, fmt.Errorf("no decoder for format %s", format))
	}

	var failures []string
	for _, d := range decoders {
		mat, meta, err := decodeSafely(d, data)
		if err != nil {
			mat.Close()
			failures = append(failures, fmt.Sprintf("%s: %v", d.Name(), err))
			logging.DebugLog("Decoder %s failed for %s: %v", d.Name(), path, err)
			continue
		}

		normalized, err := normalize(mat)
		mat.Close()
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", d.Name(), err))
			continue
		}

		return &DecodedImage{
			Mat:      normalized,
			Format:   format,
			Width:    normalized.Cols(),
			Height:   normalized.Rows(),
			Metadata: meta,
		}, nil
	}

	return nil, apperrors.NewDecodeError(path, fmt.Errorf("all decoders failed (%s)", strings.Join(failures, "; ")))
}

// decodeSafely guards against decoders that panic on corrupt input
func decodeSafely(d Decoder, data []byte) (mat gocv.Mat, meta types.ImageMetadata, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			mat = gocv.NewMat()
			err = fmt.Errorf("decoder panic: %v", rec)
		}
	}()
	return d.Decode(data)
}

// normalize converts any decoded Mat into 8-bit, 3-channel BGR
func normalize(src gocv.Mat) (gocv.Mat, error) {
	if src.Empty() {
		return gocv.NewMat(), apperrors.ErrEmptyImage
	}

	work := src.Clone()
	if bitDepth(work) == 16 {
		scaled := gocv.NewMat()
		work.ConvertToWithParams(&scaled, gocv.MatTypeCV8U, 1.0/257.0, 0)
		work.Close()
		work = scaled
	}

	switch work.Channels() {
	case 3:
		return work, nil
	case 1:
		bgr := gocv.NewMat()
		gocv.CvtColor(work, &bgr, gocv.ColorGrayToBGR)
		work.Close()
		return bgr, nil
	case 4:
		bgr := gocv.NewMat()
		gocv.CvtColor(work, &bgr, gocv.ColorBGRAToBGR)
		work.Close()
		return bgr, nil
	}

	channels := work.Channels()
	work.Close()
	return gocv.NewMat(), fmt.Errorf("unsupported channel count %d", channels)
}

// bitDepth reports the bits per channel of a Mat
func bitDepth(m gocv.Mat) int {
	switch m.Type() {
	case gocv.MatTypeCV16UC1, gocv.MatTypeCV16UC3, gocv.MatTypeCV16UC4:
		return 16
	}
	return 8
}
