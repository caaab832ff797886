package scanner

import (
	"os"
	"path/filepath"
	"sort"

	"imagefingerprint/imageprocessor"
	"imagefingerprint/logging"
	"imagefingerprint/types"

	"github.com/spf13/afero"
)

// FileStats counts the image files found under a folder
type FileStats struct {
	TotalFiles int
	RawFiles   int
	TifFiles   int
}

// IsTiffFormat checks if a file is in TIF format
func IsTiffFormat(path string) bool {
	return imageprocessor.GetFileFormat(path) == imageprocessor.FormatTIFF
}

// CollectWorkItems walks root and returns one item per supported image file,
// sorted by path. Unreadable entries are logged and skipped.
func CollectWorkItems(fs afero.Fs, root string, itemOpts types.ItemOptions) ([]types.WorkItem, FileStats, error) {
	var items []types.WorkItem
	var stats FileStats

	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			logging.LogError("Error accessing path %s: %v", path, err)
			return nil
		}
		if info.IsDir() || !imageprocessor.IsImageFile(path) {
			return nil
		}

		stats.TotalFiles++
		if imageprocessor.IsRawFormat(path) {
			stats.RawFiles++
		} else if IsTiffFormat(path) {
			stats.TifFiles++
		}

		items = append(items, types.WorkItem{
			Path:    path,
			Name:    filepath.Base(path),
			Options: itemOpts,
		})
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	return items, stats, nil
}
