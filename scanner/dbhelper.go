package scanner

import (
	"database/sql"

	"imagefingerprint/database"
	"imagefingerprint/logging"
	"imagefingerprint/types"

	"github.com/spf13/afero"
)

// FilterUnchanged drops items already stored under sourcePrefix whose file has
// not been modified since. Items that cannot be checked are kept.
func FilterUnchanged(db *sql.DB, fs afero.Fs, items []types.WorkItem, sourcePrefix string, debugMode bool) ([]types.WorkItem, int) {
	kept := make([]types.WorkItem, 0, len(items))
	skipped := 0

	for _, item := range items {
		exists, storedModTime, err := database.CheckImageExists(db, item.Path, sourcePrefix)
		if err != nil {
			logging.LogWarning("Cannot check stored record for %s: %v", item.Path, err)
			kept = append(kept, item)
			continue
		}
		if !exists {
			kept = append(kept, item)
			continue
		}

		info, err := fs.Stat(item.Path)
		if err != nil {
			kept = append(kept, item)
			continue
		}

		if !info.ModTime().After(storedModTime) {
			if debugMode {
				logging.DebugLog("Skipping unchanged image: %s", item.Path)
			}
			skipped++
			continue
		}
		kept = append(kept, item)
	}

	return kept, skipped
}
