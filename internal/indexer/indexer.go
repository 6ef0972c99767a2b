// Package indexer orchestrates a full or incremental build of the
// persistent Search Structure from a tree of per-project JSONL session
// files.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mquayle/convoindex/internal/document"
	"github.com/mquayle/convoindex/internal/keywords"
	"github.com/mquayle/convoindex/internal/parser"
	"github.com/mquayle/convoindex/internal/searchindex"
	"github.com/mquayle/convoindex/internal/store"
)

// DefaultBatchSize caps how many session files are parsed per batch.
const DefaultBatchSize = 20

// ProgressKind tags a ProgressEvent.
type ProgressKind string

const (
	ProgressStart    ProgressKind = "start"
	ProgressBatch    ProgressKind = "progress"
	ProgressComplete ProgressKind = "complete"
)

// ProgressEvent reports cumulative build progress. One start event precedes
// the first batch, one progress event follows each batch, and one complete
// event follows the final persist.
type ProgressEvent struct {
	Kind        ProgressKind
	Processed   int
	Total       int
	Percentage  int
	ETASeconds  int
	CurrentFile string
}

// ProgressFunc receives progress events at batch boundaries. Callers may use
// it to drive a progress bar; the indexer itself never renders anything.
type ProgressFunc func(ProgressEvent)

// emitProgress invokes fn with a fully derived event; nil fn is a no-op.
func emitProgress(fn ProgressFunc, kind ProgressKind, processed, total int, started time.Time, currentFile string) {
	if fn == nil {
		return
	}
	ev := ProgressEvent{Kind: kind, Processed: processed, Total: total, CurrentFile: currentFile}
	if total > 0 {
		ev.Percentage = processed * 100 / total
	}
	if processed > 0 && processed < total {
		elapsed := time.Since(started)
		remaining := time.Duration(float64(elapsed) / float64(processed) * float64(total-processed))
		ev.ETASeconds = int(remaining.Round(time.Second).Seconds())
	}
	fn(ev)
}

// Options configures a Build.
type Options struct {
	Root         string
	IndexPath    string
	BatchSize    int
	Workers      int
	ForceRebuild bool
	// DeleteEmpty removes session files that yield an empty conversation.
	// It is off by default and must be explicitly enabled by the user; the
	// parser itself never writes back to session files.
	DeleteEmpty bool
	// TopKeywords bounds how many TF-IDF keywords the Keyword Extractor
	// keeps per document; zero falls back to
	// keywords.DefaultTopK.
	TopKeywords int
	Logger      *slog.Logger
	Progress    ProgressFunc
}

func (o Options) batchSize() int {
	if o.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return o.BatchSize
}

func (o Options) topKeywords() int {
	if o.TopKeywords <= 0 {
		return keywords.DefaultTopK
	}
	return o.TopKeywords
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return 4
	}
	return o.Workers
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Result is what a Build call returns: the fresh index, its backing
// document store, and build statistics.
type Result struct {
	Index *searchindex.Index
	Store *store.Store
	Stats Stats
}

// Build enumerates every .jsonl file under opts.Root, parses it in a
// bounded worker pool partitioned into batches, assembles the Document
// Store and Search Structure, runs the corpus-wide Keyword Extractor, and
// atomically persists the result. The reuse/skip decision belongs to the
// freshness package and is the caller's responsibility before invoking
// Build.
func Build(ctx context.Context, opts Options) (*Result, error) {
	log := opts.logger()
	start := time.Now()

	files, err := enumerateSessionFiles(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("enumerate session files: %w", err)
	}

	docStore := store.New()
	idx := searchindex.New()

	batches := batch(files, opts.batchSize())
	stats := Stats{FilesScanned: len(files)}
	processed := 0
	emitProgress(opts.Progress, ProgressStart, 0, len(files), start, "")

	for _, b := range batches {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		default:
		}

		docs, emptyPaths, batchStats := parseBatch(b, opts.workers(), log)
		stats.ParseErrors += batchStats.ParseErrors
		stats.RecoveredLines += batchStats.RecoveredLines
		stats.DocumentsSkipped += batchStats.DocumentsSkipped
		stats.FallbackIDs += batchStats.FallbackIDs

		if opts.DeleteEmpty {
			stats.EmptyDeleted += deleteEmptySessions(emptyPaths, log)
		}

		for _, doc := range docs {
			docStore.Put(doc)
			idx.AddDocument(doc)
			stats.DocumentsIndexed++
		}

		processed += len(b)
		emitProgress(opts.Progress, ProgressBatch, processed, len(files), start, b[len(b)-1].path)
	}

	kwModel := keywords.BuildModel(docStore.All())
	topK := opts.topKeywords()
	for _, doc := range docStore.All() {
		doc.TopKeywords = kwModel.TopKeywords(doc.FullText, topK)
		idx.RefreshKeywords(doc)
	}

	idx.BuiltAt = start.UnixMilli()
	idx.BuildDurationMs = time.Since(start).Milliseconds()

	if err := searchindex.Save(idx, opts.IndexPath); err != nil {
		return nil, fmt.Errorf("save index: %w", err)
	}

	if info, err := os.Stat(opts.IndexPath); err == nil {
		stats.IndexSizeBytes = info.Size()
	}
	stats.Duration = time.Since(start)
	emitProgress(opts.Progress, ProgressComplete, len(files), len(files), start, "")

	return &Result{Index: idx, Store: docStore, Stats: stats}, nil
}

// sessionFile pairs a path with the document id derived from its
// filename. fallback marks ids that did not come from a UUID-shaped
// filename.
type sessionFile struct {
	path     string
	id       string
	fallback bool
}

// enumerateSessionFiles walks root for regular .jsonl files and derives
// each document's id from its filename, validating it as a UUID when
// possible. A non-UUID filename gets a deterministic v5 UUID hashed from
// its base name so legacy or hand-named session files are not silently
// dropped; such files are flagged and counted in build stats, and
// parseBatch later replaces the hashed id with the sessionId the parser
// finds in the file's own records, when that parses as a UUID.
func enumerateSessionFiles(root string) ([]sessionFile, error) {
	var out []sessionFile
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || filepath.Ext(path) != ".jsonl" {
			return nil
		}
		base := strings.TrimSuffix(filepath.Base(path), ".jsonl")
		sf := sessionFile{path: path}
		if parsed, err := uuid.Parse(base); err == nil {
			sf.id = parsed.String()
		} else {
			sf.id = uuid.NewSHA1(uuid.NameSpaceURL, []byte(base)).String()
			sf.fallback = true
		}
		out = append(out, sf)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func batch(files []sessionFile, size int) [][]sessionFile {
	var out [][]sessionFile
	for i := 0; i < len(files); i += size {
		end := i + size
		if end > len(files) {
			end = len(files)
		}
		out = append(out, files[i:end])
	}
	return out
}

// parseBatch parses one batch's files in parallel across a bounded worker
// pool: a sync.WaitGroup fan-out draining a shared jobs channel.
func parseBatch(files []sessionFile, workers int, log *slog.Logger) ([]*document.Document, []string, Stats) {
	type parsed struct {
		doc      *document.Document
		path     string
		stats    parser.Stats
		fallback bool
		err      error
	}

	jobs := make(chan sessionFile)
	results := make(chan parsed, len(files))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sf := range jobs {
				res, err := parser.ParseFile(sf.path)
				if err != nil {
					results <- parsed{err: err}
					continue
				}
				if res.Empty {
					results <- parsed{path: sf.path, stats: res.Stats}
					continue
				}
				id := sf.id
				if sf.fallback {
					// a sessionId recorded in the file itself beats an
					// id hashed from the filename
					if fromRecords, err := uuid.Parse(res.SessionID); err == nil {
						id = fromRecords.String()
					}
				}
				res.Doc.ID = id
				res.Doc.Project = projectNameForPath(sf.path)
				results <- parsed{doc: res.Doc, stats: res.Stats, fallback: sf.fallback}
			}
		}()
	}

	go func() {
		for _, sf := range files {
			jobs <- sf
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var docs []*document.Document
	var emptyPaths []string
	var stats Stats
	for r := range results {
		if r.err != nil {
			log.Warn("indexer: failed to parse session file", "error", r.err)
			stats.ParseErrors++
			continue
		}
		stats.ParseErrors += r.stats.ParseErrors
		stats.RecoveredLines += r.stats.Recovered
		if r.doc == nil {
			stats.DocumentsSkipped++
			emptyPaths = append(emptyPaths, r.path)
			continue
		}
		if r.fallback {
			stats.FallbackIDs++
		}
		docs = append(docs, r.doc)
	}
	return docs, emptyPaths, stats
}

// deleteEmptySessions removes session files that produced no document. Only
// reached when the caller explicitly opted in via Options.DeleteEmpty.
func deleteEmptySessions(paths []string, log *slog.Logger) int {
	deleted := 0
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			log.Warn("indexer: failed to delete empty session file", "path", p, "error", err)
			continue
		}
		log.Info("indexer: deleted empty session file", "path", p)
		deleted++
	}
	return deleted
}

// projectNameForPath derives a project name from the immediate parent
// directory of a session file, matching the root/<project>/<id>.jsonl
// layout the walker assumes.
func projectNameForPath(path string) string {
	return filepath.Base(filepath.Dir(path))
}
