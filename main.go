package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"imagefingerprint/config"
	"imagefingerprint/database"
	"imagefingerprint/imageprocessor"
	"imagefingerprint/logging"
	"imagefingerprint/scanner"
	"imagefingerprint/signalhandler"
	"imagefingerprint/types"
	"imagefingerprint/utils"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	if len(args) < 2 {
		utils.PrintUsage(os.Stderr, args[0])
		return 1
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	logging.SetLevel(cfg.LogLevel)
	defer logging.CloseLogger()

	ctx, stop := signalhandler.SetupHandler(context.Background())
	defer stop()

	command, rest := args[1], args[2:]
	switch command {
	case "scan":
		err = handleScanCommand(ctx, cfg, rest)
	case "search":
		err = handleSearchCommand(ctx, cfg, rest)
	case "compare":
		err = handleCompareCommand(ctx, cfg, rest)
	case "task":
		err = handleTaskCommand(ctx, cfg, rest)
	case "stats":
		err = handleStatsCommand(cfg, rest)
	case "help", "-h", "--help":
		utils.PrintUsage(os.Stdout, args[0])
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		utils.PrintUsage(os.Stderr, args[0])
		return 1
	}

	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logging.LogError("%s failed: %v", command, err)
		return 1
	}
	return 0
}

// commonFlags registers the flags shared by every command
func commonFlags(fs *pflag.FlagSet, cfg *config.Config) (debug *bool) {
	fs.StringVar(&cfg.DatabasePath, "database", cfg.DatabasePath, "path to database file")
	fs.StringVar(&cfg.LogFile, "logfile", cfg.LogFile, "log file used in debug mode")
	return fs.Bool("debug", false, "enable debug logging to the log file")
}

func setupDebug(enabled bool, logPath string) {
	if !enabled {
		return
	}
	if err := logging.SetupLogger(logPath); err != nil {
		fmt.Printf("Warning: Failed to setup logging: %v\n", err)
		return
	}
	fmt.Printf("Debug mode enabled. Logging to: %s\n", logPath)
}

func newFingerprinter(fs afero.Fs, cfg *config.Config) (*imageprocessor.Fingerprinter, error) {
	fp, err := imageprocessor.NewFingerprinter(fs, cfg.Hash)
	if err != nil {
		return nil, fmt.Errorf("cannot initialise fingerprinter: %w", err)
	}
	return fp, nil
}

// openDatabase initialises the store, retrying while another process holds a lock
func openDatabase(dbPath string) (*sql.DB, error) {
	var db *sql.DB
	var err error
	const maxRetries = 3
	for i := 0; i < maxRetries; i++ {
		db, err = database.InitDatabase(dbPath)
		if err == nil {
			return db, nil
		}
		if i < maxRetries-1 {
			logging.LogWarning("Error initializing database (attempt %d/%d): %v - retrying...", i+1, maxRetries, err)
			time.Sleep(time.Second * time.Duration(i+1))
		}
	}
	return nil, fmt.Errorf("error initializing database after %d attempts: %w", maxRetries, err)
}

func handleScanCommand(ctx context.Context, cfg *config.Config, args []string) error {
	flags := pflag.NewFlagSet("scan", pflag.ContinueOnError)
	debug := commonFlags(flags, cfg)
	folderPath := flags.String("folder", "", "folder containing images to scan")
	sourcePrefix := flags.String("prefix", "", "source prefix stored with every record")
	forceRewrite := flags.Bool("force", false, "re-fingerprint unchanged images")
	noThumbnails := flags.Bool("no-thumbnails", false, "skip thumbnail generation")
	flags.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of concurrent workers")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *folderPath == "" {
		return errors.New("missing folder path (use --folder=PATH)")
	}
	if err := config.Validate(*cfg); err != nil {
		return err
	}
	setupDebug(*debug, cfg.LogFile)

	fs := afero.NewOsFs()
	info, err := fs.Stat(*folderPath)
	if err != nil {
		return fmt.Errorf("cannot access folder path %s: %w", *folderPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", *folderPath)
	}

	startTime := time.Now()

	db, err := openDatabase(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	engine, err := newFingerprinter(fs, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	summary, err := scanner.ScanAndStoreFolder(ctx, db, fs, engine, scanner.ScanOptions{
		FolderPath:    *folderPath,
		SourcePrefix:  *sourcePrefix,
		ForceRewrite:  *forceRewrite,
		DebugMode:     *debug,
		SkipThumbnail: *noThumbnails,
		MaxWorkers:    cfg.Workers,
		Output:        os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("error scanning folder: %w", err)
	}

	fmt.Printf("\nTotal execution time: %v\n", time.Since(startTime))
	fmt.Printf("Database: %s\n", cfg.DatabasePath)
	if summary.Result.State == types.BatchCancelled {
		fmt.Printf("Scan cancelled after %d of %d images.\n", summary.Result.Completed, summary.Result.Total)
	}

	if stats, err := database.GetScanStats(db, *sourcePrefix); err == nil {
		printStats(stats)
	}
	return nil
}

func handleSearchCommand(ctx context.Context, cfg *config.Config, args []string) error {
	flags := pflag.NewFlagSet("search", pflag.ContinueOnError)
	debug := commonFlags(flags, cfg)
	queryPath := flags.String("image", "", "query image")
	thresholdStr := flags.String("threshold", fmt.Sprint(cfg.Threshold), "similarity threshold (0.0-1.0)")
	sourcePrefix := flags.String("prefix", "", "only search records with this source prefix")
	limit := flags.Int("limit", 5, "maximum matches to show, 0 for all")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *queryPath == "" {
		return errors.New("missing query image path (use --image=PATH)")
	}
	setupDebug(*debug, cfg.LogFile)

	threshold, err := utils.ParseThreshold(*thresholdStr)
	if err != nil {
		fmt.Printf("Warning: %v\n", err)
	}

	fs := afero.NewOsFs()
	if _, err := fs.Stat(cfg.DatabasePath); err != nil {
		return fmt.Errorf("database does not exist: %s. Run scan command first", cfg.DatabasePath)
	}

	startTime := time.Now()

	db, err := database.OpenDatabase(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer db.Close()

	engine, err := newFingerprinter(fs, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	query, err := engine.ComputeFingerprint(ctx, *queryPath, types.ItemOptions{SkipThumbnail: true, SkipMetadata: true})
	if err != nil {
		return fmt.Errorf("cannot fingerprint query image: %w", err)
	}

	fmt.Println("Searching for similar images...")
	if *sourcePrefix != "" {
		fmt.Printf("Filtering by source prefix: %s\n", *sourcePrefix)
	}

	candidates, err := database.LoadFingerprints(db, *sourcePrefix)
	if err != nil {
		return fmt.Errorf("error loading fingerprints: %w", err)
	}

	matches := imageprocessor.FindSimilarImages(query, candidates, imageprocessor.SearchOptions{
		Threshold:    threshold,
		SourcePrefix: *sourcePrefix,
		Limit:        *limit,
		Weights:      cfg.Weights,
		DebugMode:    *debug,
	})

	fmt.Println("\nTop Matches:")
	if len(matches) == 0 {
		fmt.Println("No matches found.")
	}
	for i, m := range matches {
		fmt.Printf("%d. Image: %s\n", i+1, m.Path)
		if m.SourcePrefix != "" {
			fmt.Printf("   Source: %s\n", m.SourcePrefix)
		}
		fmt.Printf("   Similarity: %.4f\n", m.Score)
	}

	fmt.Printf("\nSearched %d images in %v\n", len(candidates), time.Since(startTime))
	return nil
}

func handleCompareCommand(ctx context.Context, cfg *config.Config, args []string) error {
	flags := pflag.NewFlagSet("compare", pflag.ContinueOnError)
	debug := commonFlags(flags, cfg)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 2 {
		return errors.New("compare needs exactly two image paths")
	}
	setupDebug(*debug, cfg.LogFile)

	engine, err := newFingerprinter(afero.NewOsFs(), cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	itemOpts := types.ItemOptions{SkipThumbnail: true, SkipMetadata: true}
	var fps [2]types.ImageFingerprint
	for i, path := range flags.Args() {
		fps[i], err = engine.ComputeFingerprint(ctx, path, itemOpts)
		if err != nil {
			return fmt.Errorf("cannot fingerprint %s: %w", path, err)
		}
	}

	report := imageprocessor.Compare(fps[0].Hashes, fps[1].Hashes, cfg.Weights)
	fmt.Printf("%s\n%s\n\n", fps[0].Path, fps[1].Path)
	for _, ch := range report.Channels {
		if !ch.Included {
			fmt.Printf("  %-10s excluded\n", ch.Channel)
			continue
		}
		fmt.Printf("  %-10s %.4f (weight %.2f)\n", ch.Channel, ch.Similarity, ch.Weight)
	}
	fmt.Printf("\nSimilarity: %.4f\n", report.Score)
	if fps[0].Hashes.Fingerprint == fps[1].Hashes.Fingerprint {
		fmt.Println("Fingerprints are identical.")
	}
	return nil
}

func handleTaskCommand(ctx context.Context, cfg *config.Config, args []string) error {
	flags := pflag.NewFlagSet("task", pflag.ContinueOnError)
	debug := commonFlags(flags, cfg)
	typeName := flags.String("type", string(scanner.TaskProcessImage), "task type")
	imagePath := flags.String("image", "", "image to run the task on")
	outPath := flags.String("out", "", "write a generated thumbnail to this file")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *imagePath == "" {
		return errors.New("missing image path (use --image=PATH)")
	}
	setupDebug(*debug, cfg.LogFile)

	taskType, err := scanner.ParseTaskType(*typeName)
	if err != nil {
		return err
	}
	task, err := scanner.NewTask(taskType, *imagePath)
	if err != nil {
		return err
	}

	engine, err := newFingerprinter(afero.NewOsFs(), cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	resp := scanner.NewWorker(0, engine).Handle(ctx, scanner.Request{ID: 1, Task: task})
	if !resp.Success {
		return resp.Err
	}

	var payload interface{}
	switch resp.TaskType {
	case scanner.TaskProcessImage:
		fp := *resp.Fingerprint
		fp.Thumbnail = nil
		payload = fp
	case scanner.TaskExtractMetadata:
		payload = resp.Metadata
	case scanner.TaskCalculateHash:
		payload = resp.Hashes
	case scanner.TaskGenerateThumbnail:
		if *outPath != "" {
			if err := os.WriteFile(*outPath, resp.Thumbnail, 0o644); err != nil {
				return fmt.Errorf("cannot write thumbnail: %w", err)
			}
		}
		payload = map[string]interface{}{"bytes": len(resp.Thumbnail), "out": *outPath}
	}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func handleStatsCommand(cfg *config.Config, args []string) error {
	flags := pflag.NewFlagSet("stats", pflag.ContinueOnError)
	debug := commonFlags(flags, cfg)
	sourcePrefix := flags.String("prefix", "", "only count records with this source prefix")
	showDuplicates := flags.Bool("duplicates", false, "list groups of identical fingerprints")
	if err := flags.Parse(args); err != nil {
		return err
	}
	setupDebug(*debug, cfg.LogFile)

	db, err := database.OpenDatabase(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer db.Close()

	stats, err := database.GetScanStats(db, *sourcePrefix)
	if err != nil {
		return err
	}
	printStats(stats)

	if !*showDuplicates {
		return nil
	}
	groups, err := database.FindExactDuplicates(db, *sourcePrefix)
	if err != nil {
		return err
	}
	for _, g := range groups {
		fmt.Printf("\n%s\n", g.Fingerprint)
		for _, p := range g.Paths {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}

func printStats(stats *database.ScanStats) {
	fmt.Printf("\nSummary:\n")
	fmt.Printf("- Total images stored: %d\n", stats.TotalImages)
	fmt.Printf("- Unique fingerprints: %d\n", stats.UniqueFingerprints)
	fmt.Printf("- Duplicate groups: %d\n", stats.DuplicateGroups)
	fmt.Printf("- Total size: %d bytes\n", stats.TotalBytes)
}
