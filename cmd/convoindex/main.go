// Command convoindex drives the three core subsystems — ingestion,
// persistent index, and query engine — from the command line: build or
// update the index, run a one-shot search, or report index statistics.
// The interactive TUI, exporters, and background scheduler are external
// collaborators that drive this same API from outside the binary.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mquayle/convoindex/internal/config"
	"github.com/mquayle/convoindex/internal/freshness"
	"github.com/mquayle/convoindex/internal/indexer"
	"github.com/mquayle/convoindex/internal/query"
	"github.com/mquayle/convoindex/internal/searchindex"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var err error
	switch os.Args[1] {
	case "build":
		err = runBuild(logger, os.Args[2:])
	case "update":
		err = runUpdate(logger, os.Args[2:])
	case "search":
		err = runSearch(logger, os.Args[2:])
	case "list":
		err = runGetAll(logger, os.Args[2:])
	case "stats":
		err = runStats(logger, os.Args[2:])
	case "validate":
		err = runValidate(logger, os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "convoindex: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "convoindex: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `convoindex: local full-text search over chat transcript archives

Usage:
  convoindex build    [--config path] [--force] [--batch-size n] [--delete-empty]
  convoindex update    [--config path]
  convoindex search    [--config path] --query "text" [--limit n] [--json]
                       [--filter-repo name] [--filter-date today|week|month]
  convoindex list      [--config path] [--limit n] [--json]
                       [--filter-repo name] [--filter-date today|week|month]
  convoindex stats     [--config path]
  convoindex validate  [--config path]`)
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runBuild(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	force := fs.Bool("force", false, "rebuild even if the freshness controller would reuse the existing index")
	batchSize := fs.Int("batch-size", 0, "override the configured batch size")
	deleteEmpty := fs.Bool("delete-empty", false, "delete session files that contain no conversation (off by default)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	size := cfg.Index.BatchSize
	if *batchSize > 0 {
		size = *batchSize
	}

	opts := indexer.Options{
		Root:         cfg.Projects.Root,
		IndexPath:    cfg.Index.Path,
		BatchSize:    size,
		ForceRebuild: *force,
		DeleteEmpty:  *deleteEmpty,
		TopKeywords:  cfg.Index.TopKeywords,
		Logger:       logger,
		Progress:     progressPrinter(),
	}

	if !*force {
		decision, err := decide(cfg)
		switch {
		case err == nil && decision == freshness.Reuse:
			fmt.Println("index is fresh, nothing to do (use --force to rebuild anyway)")
			return nil
		case err == nil && decision == freshness.Archive:
			fmt.Println("existing index is a protected archive; skipping rebuild")
			return nil
		case err == nil && decision == freshness.Update:
			result, err := indexer.Update(context.Background(), opts)
			if err != nil {
				return fmt.Errorf("update: %w", err)
			}
			fmt.Println(result.Stats.Summary())
			return nil
		}
	}

	result, err := indexer.Build(context.Background(), opts)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	fmt.Println(result.Stats.Summary())
	return nil
}

func runUpdate(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	opts := indexer.Options{
		Root:        cfg.Projects.Root,
		IndexPath:   cfg.Index.Path,
		BatchSize:   cfg.Index.BatchSize,
		TopKeywords: cfg.Index.TopKeywords,
		Logger:      logger,
		Progress:    progressPrinter(),
	}

	result, err := indexer.Update(context.Background(), opts)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	fmt.Println(result.Stats.Summary())
	return nil
}

func runSearch(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	q := fs.String("query", "", "search query")
	limit := fs.Int("limit", 0, "max enriched results (default from config)")
	asJSON := fs.Bool("json", false, "emit machine-readable JSON")
	filterRepo := fs.String("filter-repo", "", "restrict results to this project name")
	filterDate := fs.String("filter-date", "", "restrict results by modified time: today, week, month")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *q == "" {
		return errors.New("search: --query is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	idx, err := ensureLoaded(cfg.Index.Path)
	if err != nil {
		return err
	}

	dateRange, err := parseDatePreset(*filterDate)
	if err != nil {
		return err
	}

	opts := query.Options{
		Limit:         *limit,
		MinScore:      cfg.Search.MinScore,
		ProjectFilter: *filterRepo,
		DateRange:     dateRange,
	}
	if opts.Limit == 0 {
		opts.Limit = cfg.Search.DefaultLimit
	}

	result := query.Search(idx, *q, opts)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResults(result)
	return nil
}

func runGetAll(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	limit := fs.Int("limit", 0, "max results (default from config)")
	asJSON := fs.Bool("json", false, "emit machine-readable JSON")
	filterRepo := fs.String("filter-repo", "", "restrict results to this project name")
	filterDate := fs.String("filter-date", "", "restrict results by modified time: today, week, month")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	idx, err := ensureLoaded(cfg.Index.Path)
	if err != nil {
		return err
	}

	dateRange, err := parseDatePreset(*filterDate)
	if err != nil {
		return err
	}

	opts := query.Options{Limit: *limit, ProjectFilter: *filterRepo, DateRange: dateRange}
	if opts.Limit == 0 {
		opts.Limit = cfg.Search.DefaultLimit
	}

	result := query.GetAll(idx, opts)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResults(result)
	return nil
}

func runStats(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	idx, err := ensureLoaded(cfg.Index.Path)
	if err != nil {
		return err
	}

	info, statErr := os.Stat(cfg.Index.Path)
	var size int64
	if statErr == nil {
		size = info.Size()
	}

	fmt.Printf("document_count: %d\nindex_size: %d bytes\nbuilt_at: %s\nversion: %d\n",
		idx.DocumentCount(), size, time.UnixMilli(idx.BuiltAt).Format(time.RFC3339), searchindex.SchemaVersion)
	return nil
}

func runValidate(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	_, err = searchindex.Load(cfg.Index.Path)
	if err != nil {
		fmt.Println("false")
		return nil
	}
	fmt.Println("true")
	return nil
}

// parseDatePreset maps the --filter-date enum onto a query.DateRange. An
// empty preset disables date filtering.
func parseDatePreset(preset string) (query.DateRange, error) {
	if preset == "" {
		return query.DateRange{}, nil
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch preset {
	case "today":
		return query.DateRange{Start: today, End: now}, nil
	case "week":
		return query.DateRange{Start: today.AddDate(0, 0, -7), End: now}, nil
	case "month":
		return query.DateRange{Start: today.AddDate(0, -1, 0), End: now}, nil
	default:
		return query.DateRange{}, fmt.Errorf("search: unknown --filter-date preset %q (want today, week, or month)", preset)
	}
}

// decide runs the freshness controller against the currently configured
// project root and persisted index.
func decide(cfg *config.Config) (freshness.Decision, error) {
	sessions, err := freshness.ScanSessionFiles(cfg.Projects.Root)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(cfg.Index.Path)
	state := freshness.IndexState{}
	if err == nil {
		if idx, loadErr := searchindex.Load(cfg.Index.Path); loadErr == nil {
			state.Parseable = true
			state.ModTime = info.ModTime()
			state.DocumentCount = idx.DocumentCount()
		}
	}

	return freshness.Decide(state, sessions, freshness.Config{
		ArchiveRatio: cfg.Index.ArchiveRatio,
		StaleRatio:   cfg.Index.StaleRatio,
	}), nil
}

// ensureLoaded loads the persisted index, surfacing missing/corrupt
// errors to the caller rather than silently building.
func ensureLoaded(path string) (*searchindex.Index, error) {
	idx, err := searchindex.Load(path)
	if err != nil {
		if errors.Is(err, searchindex.ErrIndexMissing) {
			return nil, fmt.Errorf("%w: run `convoindex build` first", err)
		}
		return nil, err
	}
	return idx, nil
}

func progressPrinter() indexer.ProgressFunc {
	return func(ev indexer.ProgressEvent) {
		if ev.Total == 0 {
			return
		}
		switch ev.Kind {
		case indexer.ProgressBatch:
			fmt.Fprintf(os.Stderr, "\rindexing: %d/%d (%d%%, ~%ds left)", ev.Processed, ev.Total, ev.Percentage, ev.ETASeconds)
		case indexer.ProgressComplete:
			fmt.Fprintf(os.Stderr, "\rindexing: %d/%d (100%%)\n", ev.Processed, ev.Total)
		}
	}
}

func printResults(result query.Result) {
	fmt.Printf("%d result(s) in %dms\n\n", result.TotalFound, result.SearchTimeMs)
	for i, hit := range result.Results {
		fmt.Printf("%d. [%s] %s (score %.3f, %d messages)\n", i+1, hit.Project, hit.ID, hit.Score, hit.MessageCount)
		fmt.Printf("   %s\n", hit.Preview)
	}
}
