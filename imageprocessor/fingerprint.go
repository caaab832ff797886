package imageprocessor

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"

	"imagefingerprint/types"
)

// ComputeCompositeFingerprint digests the four channel hashes. The order
// color, structure, edge, content and the "-" separator are fixed so that
// independently computed fingerprints match.
func ComputeCompositeFingerprint(h types.Hashes) string {
	joined := strings.Join([]string{h.Color, h.Structure, h.Edge, h.Content}, "-")
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])
}

// Assemble builds the fingerprint record and fills in the composite digest
func Assemble(path string, decoded *DecodedImage, hashes types.Hashes, meta types.ImageMetadata,
	stat types.FileStat, thumbnail []byte, avg types.RGB) types.ImageFingerprint {

	hashes.Fingerprint = ComputeCompositeFingerprint(hashes)

	fp := types.ImageFingerprint{
		Path:         path,
		Name:         filepath.Base(path),
		SizeBytes:    stat.SizeBytes,
		ModifiedTime: stat.ModifiedTime,
		Hashes:       hashes,
		Metadata:     meta,
		Thumbnail:    thumbnail,
		AverageColor: avg,
	}
	if decoded != nil {
		fp.Format = string(decoded.Format)
		fp.Width = decoded.Width
		fp.Height = decoded.Height
	}
	return fp
}
