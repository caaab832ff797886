package scanner

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"imagefingerprint/database"
	"imagefingerprint/logging"
	"imagefingerprint/types"

	"github.com/spf13/afero"
)

// ScanOptions defines the options for scanning
type ScanOptions struct {
	FolderPath    string
	SourcePrefix  string
	ForceRewrite  bool
	DebugMode     bool
	SkipThumbnail bool
	MaxWorkers    int       // zero uses signalhandler.GetOptimalProcs()
	Output        io.Writer // progress and summary, nil for none
}

// ScanSummary describes one folder scan
type ScanSummary struct {
	Result      types.BatchResult
	Found       FileStats
	Skipped     int
	StoreErrors int
}

// ScanAndStoreFolder fingerprints every image under the folder and stores the
// results. Files already stored and unchanged since are skipped unless
// ForceRewrite is set. Records are written from the batch coordinator, one at
// a time, as items complete.
func ScanAndStoreFolder(ctx context.Context, db *sql.DB, fs afero.Fs, engine Engine, options ScanOptions) (ScanSummary, error) {
	var summary ScanSummary

	if options.DebugMode {
		logging.DebugLog("Starting image scan on folder: %s", options.FolderPath)
		logging.DebugLog("Force rewrite: %v, Source prefix: %s", options.ForceRewrite, options.SourcePrefix)
	}

	items, found, err := CollectWorkItems(fs, options.FolderPath, types.ItemOptions{SkipThumbnail: options.SkipThumbnail})
	if err != nil {
		return summary, fmt.Errorf("cannot walk %s: %w", options.FolderPath, err)
	}
	summary.Found = found

	if !options.ForceRewrite {
		items, summary.Skipped = FilterUnchanged(db, fs, items, options.SourcePrefix, options.DebugMode)
	}

	out := options.Output
	if out == nil {
		out = io.Discard
	}
	PrintStartupInfo(out, found, summary.Skipped, options)

	tracker := NewProgressTracker(found, len(items), out)

	batch := NewBatch(items, engine, BatchOptions{Workers: options.MaxWorkers})
	result, err := batch.Run(ctx, func(ev types.Progress) {
		tracker.Update(ev)
		if ev.Result == nil {
			return
		}
		if err := database.StoreFingerprint(db, *ev.Result, options.SourcePrefix); err != nil {
			summary.StoreErrors++
			logging.LogError("Cannot store fingerprint for %s: %v", ev.Item.Path, err)
		}
	})
	if err != nil {
		return summary, err
	}
	tracker.Stop()

	summary.Result = result
	tracker.PrintCompletionStats(result, summary.StoreErrors)
	return summary, nil
}
