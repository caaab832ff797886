package imageprocessor

import (
	"context"

	apperrors "imagefingerprint/errors"
	"imagefingerprint/logging"
	"imagefingerprint/types"

	"github.com/spf13/afero"
	"gocv.io/x/gocv"
)

// Fingerprinter computes fingerprints for files on an afero filesystem.
// It holds no per-image state and is safe for concurrent use.
type Fingerprinter struct {
	fs       afero.Fs
	opts     HashOptions
	decoders *DecoderRegistry
	meta     *MetadataExtractor
}

// NewFingerprinter creates a fingerprinter reading from fs. Tag metadata is
// read through exiftool only for the OS filesystem and only when the binary
// is installed.
func NewFingerprinter(fs afero.Fs, opts HashOptions) (*Fingerprinter, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	f := &Fingerprinter{
		fs:       fs,
		opts:     opts,
		decoders: NewDecoderRegistry(),
	}

	if _, ok := fs.(*afero.OsFs); ok {
		meta, err := NewMetadataExtractor()
		if err != nil {
			logging.DebugLog("Tag metadata disabled: %v", err)
		} else {
			f.meta = meta
		}
	}
	return f, nil
}

// Options returns the hash options in use
func (f *Fingerprinter) Options() HashOptions {
	return f.opts
}

// Decoders exposes the decoder registry so callers can register extra decoders
func (f *Fingerprinter) Decoders() *DecoderRegistry {
	return f.decoders
}

// Close releases the exiftool process, if any
func (f *Fingerprinter) Close() {
	f.meta.Close()
}

// readSource loads the bytes and file stats of path
func (f *Fingerprinter) readSource(ctx context.Context, path string) ([]byte, types.FileStat, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.FileStat{}, err
	}

	info, err := f.fs.Stat(path)
	if err != nil {
		return nil, types.FileStat{}, apperrors.NewDecodeError(path, err)
	}
	data, err := afero.ReadFile(f.fs, path)
	if err != nil {
		return nil, types.FileStat{}, apperrors.NewDecodeError(path, err)
	}
	return data, types.FileStat{SizeBytes: info.Size(), ModifiedTime: info.ModTime()}, nil
}

// ComputeFingerprint reads, decodes and fingerprints the image at path
func (f *Fingerprinter) ComputeFingerprint(ctx context.Context, path string, itemOpts types.ItemOptions) (types.ImageFingerprint, error) {
	data, stat, err := f.readSource(ctx, path)
	if err != nil {
		return types.ImageFingerprint{}, err
	}
	return f.ComputeFingerprintFromBytes(path, data, stat, itemOpts)
}

// ComputeFingerprintFromBytes fingerprints already loaded file bytes. Only a
// decode failure is returned as an error; channel, thumbnail and metadata
// failures degrade inside the record.
func (f *Fingerprinter) ComputeFingerprintFromBytes(path string, data []byte, stat types.FileStat, itemOpts types.ItemOptions) (types.ImageFingerprint, error) {
	decoded, err := f.decoders.Decode(path, data)
	if err != nil {
		return types.ImageFingerprint{}, err
	}
	defer decoded.Close()

	hashes := f.computeHashes(decoded.Mat, data, path)

	meta := decoded.Metadata
	if !itemOpts.SkipMetadata {
		if err := f.meta.Enrich(path, &meta); err != nil {
			logging.DebugLog("No tag metadata for %s: %v", path, err)
		}
	}

	avg, err := ComputeAverageColor(decoded.Mat)
	if err != nil {
		logging.LogWarning("Average color failed for %s: %v", path, err)
	}

	var thumb []byte
	if !itemOpts.SkipThumbnail {
		thumb = thumbnailOrEmpty(decoded.Mat, f.opts, path)
	}

	return Assemble(path, decoded, hashes, meta, stat, thumb, avg), nil
}

// computeHashes runs every channel independently. The perceptual channels
// always come back at their full width; content is empty on failure.
func (f *Fingerprinter) computeHashes(img gocv.Mat, data []byte, path string) types.Hashes {
	color := runChannel(ChannelColor, path, func() (string, error) {
		return ComputeColorHash(img, f.opts.ColorSize)
	})
	structure := runChannel(ChannelStructure, path, func() (string, error) {
		return ComputeStructureHash(img, f.opts.StructureSize)
	})
	edge := runChannel(ChannelEdge, path, func() (string, error) {
		return ComputeEdgeHash(img, f.opts.EdgeSize, f.opts.EdgeThreshold)
	})
	content := runChannel(ChannelContent, path, func() (string, error) {
		return ComputeContentHash(data)
	})

	h := types.Hashes{
		Color:     color.orZeroFill(f.opts.ColorBits(), path),
		Structure: structure.orZeroFill(f.opts.StructureBits(), path),
		Edge:      edge.orZeroFill(f.opts.EdgeBits(), path),
		Content:   content.bits,
	}
	if content.err != nil {
		logging.LogWarning("Content hash unavailable: %v", content.err)
		h.Content = ""
	}
	return h
}

// CalculateHashes computes only the hash channels and the composite digest
func (f *Fingerprinter) CalculateHashes(ctx context.Context, path string) (types.Hashes, error) {
	data, _, err := f.readSource(ctx, path)
	if err != nil {
		return types.Hashes{}, err
	}
	decoded, err := f.decoders.Decode(path, data)
	if err != nil {
		return types.Hashes{}, err
	}
	defer decoded.Close()

	h := f.computeHashes(decoded.Mat, data, path)
	h.Fingerprint = ComputeCompositeFingerprint(h)
	return h, nil
}

// GenerateThumbnail produces only the thumbnail for path. Unlike the full
// pipeline a thumbnail failure is reported.
func (f *Fingerprinter) GenerateThumbnail(ctx context.Context, path string) ([]byte, error) {
	data, _, err := f.readSource(ctx, path)
	if err != nil {
		return nil, err
	}
	decoded, err := f.decoders.Decode(path, data)
	if err != nil {
		return nil, err
	}
	defer decoded.Close()

	thumb, err := GenerateThumbnail(decoded.Mat, f.opts.ThumbnailSize, f.opts.ThumbnailQuality)
	if err != nil {
		return nil, apperrors.NewThumbnailError(path, err)
	}
	return thumb, nil
}

// ExtractMetadata returns the decoded-format attributes of path
func (f *Fingerprinter) ExtractMetadata(ctx context.Context, path string) (types.ImageMetadata, error) {
	data, _, err := f.readSource(ctx, path)
	if err != nil {
		return types.ImageMetadata{}, err
	}
	decoded, err := f.decoders.Decode(path, data)
	if err != nil {
		return types.ImageMetadata{}, err
	}
	defer decoded.Close()

	meta := decoded.Metadata
	if err := f.meta.Enrich(path, &meta); err != nil {
		logging.DebugLog("No tag metadata for %s: %v", path, err)
	}
	return meta, nil
}
