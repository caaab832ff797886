package scanner

import (
	"fmt"
	"io"
	"time"

	"imagefingerprint/imageprocessor"
	"imagefingerprint/logging"
	"imagefingerprint/types"

	"github.com/schollz/progressbar/v3"
)

// ProgressTracker renders batch progress and keeps per-format counters.
// Update is called from the batch coordinator only.
type ProgressTracker struct {
	bar          *progressbar.ProgressBar
	out          io.Writer
	stats        FileStats
	processed    int
	errors       int
	rawProcessed int
	rawErrors    int
	tifProcessed int
	tifErrors    int
	startTime    time.Time
}

// NewProgressTracker creates a tracker drawing a bar on out
func NewProgressTracker(stats FileStats, total int, out io.Writer) *ProgressTracker {
	bar := progressbar.NewOptions64(int64(total),
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("Fingerprinting"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(out) }),
	)
	return &ProgressTracker{
		bar:       bar,
		out:       out,
		stats:     stats,
		startTime: time.Now(),
	}
}

// Update records one progress event
func (p *ProgressTracker) Update(ev types.Progress) {
	p.processed++
	failed := ev.Result == nil

	isRaw := imageprocessor.IsRawFormat(ev.Item.Path)
	isTif := IsTiffFormat(ev.Item.Path)
	if isRaw {
		p.rawProcessed++
	}
	if isTif {
		p.tifProcessed++
	}
	if failed {
		p.errors++
		if isRaw {
			p.rawErrors++
		}
		if isTif {
			p.tifErrors++
		}
		p.bar.Describe(fmt.Sprintf("Fingerprinting (errors: %d)", p.errors))
	}

	if err := p.bar.Add(1); err != nil {
		logging.DebugLog("progress bar: %v", err)
	}
}

// Stop finishes the bar
func (p *ProgressTracker) Stop() {
	p.bar.Finish()
}

// PrintStartupInfo displays information about the scan before starting
func PrintStartupInfo(out io.Writer, stats FileStats, skipped int, options ScanOptions) {
	fmt.Fprintf(out, "Starting image indexing...\nTotal image files found: %d (including %d RAW files and %d TIF files)\n",
		stats.TotalFiles, stats.RawFiles, stats.TifFiles)
	if skipped > 0 {
		fmt.Fprintf(out, "Skipping %d unchanged images\n", skipped)
	}
	fmt.Fprintf(out, "Force rewrite mode: %v\n", options.ForceRewrite)

	if options.SourcePrefix != "" {
		fmt.Fprintf(out, "Source prefix: %s\n", options.SourcePrefix)
	}

	if options.DebugMode {
		fmt.Fprintf(out, "Debug mode: enabled\n")
		logging.DebugLog("Found %d image files to process (%d RAW files, %d TIF files)",
			stats.TotalFiles, stats.RawFiles, stats.TifFiles)
	}
}

// PrintCompletionStats displays statistics after scan completion
func (p *ProgressTracker) PrintCompletionStats(result types.BatchResult, storeErrors int) {
	elapsed := time.Since(p.startTime)

	logging.DebugLog("Scan finished in %v. Processed: %d, Errors: %d, RAW files: %d, RAW errors: %d, TIF files: %d, TIF errors: %d",
		elapsed, p.processed, p.errors, p.rawProcessed, p.rawErrors, p.tifProcessed, p.tifErrors)

	if result.State == types.BatchCancelled {
		fmt.Fprintln(p.out, "\nIndexing cancelled.")
	} else {
		fmt.Fprintln(p.out, "\nIndexing complete.")
	}
	fmt.Fprintf(p.out, "Fingerprinted %d of %d images (%d accounted for) in %v.\n",
		result.Succeeded(), result.Total, result.Completed, elapsed.Round(time.Second))

	if p.rawProcessed > 0 {
		fmt.Fprintf(p.out, "Successfully processed %d/%d RAW image files.\n",
			p.rawProcessed-p.rawErrors, p.stats.RawFiles)
	}
	if p.tifProcessed > 0 {
		fmt.Fprintf(p.out, "Successfully processed %d/%d TIF image files.\n",
			p.tifProcessed-p.tifErrors, p.stats.TifFiles)
	}

	if p.errors > 0 {
		fmt.Fprintf(p.out, "Encountered %d errors during indexing.\n", p.errors)
		fmt.Fprintln(p.out, "Check the log file for details.")
	}
	if storeErrors > 0 {
		fmt.Fprintf(p.out, "Failed to store %d fingerprints.\n", storeErrors)
	}
}
