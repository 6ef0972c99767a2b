package indexer

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mquayle/convoindex/internal/document"
	"github.com/mquayle/convoindex/internal/keywords"
	"github.com/mquayle/convoindex/internal/searchindex"
	"github.com/mquayle/convoindex/internal/store"
)

// Update loads the persisted index at opts.IndexPath, re-parses only
// session files whose mtime is newer than the document already stored for
// them (or that are entirely new), re-runs the corpus-wide Keyword
// Extractor, and atomically re-persists the result.
// Callers that already know the index is missing should call Build
// instead; Update falls back to a full Build when no index exists yet.
func Update(ctx context.Context, opts Options) (*Result, error) {
	log := opts.logger()
	start := time.Now()

	existing, err := searchindex.Load(opts.IndexPath)
	if err != nil {
		log.Info("indexer: no usable existing index, falling back to full build", "error", err)
		return Build(ctx, opts)
	}

	files, err := enumerateSessionFiles(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("enumerate session files: %w", err)
	}

	docStore := store.New()
	byPath := make(map[string]*document.Document)
	for _, d := range existing.Documents() {
		docStore.Put(d)
		byPath[d.OriginalPath] = d
	}

	// change detection keys on path, not id: a fallback-named file may be
	// stored under the sessionId its records carry rather than the id its
	// filename hashes to.
	var toParse []sessionFile
	for _, sf := range files {
		info, err := os.Stat(sf.path)
		if err != nil {
			continue
		}
		if cur, ok := byPath[sf.path]; ok && !info.ModTime().After(cur.Modified) {
			continue
		}
		toParse = append(toParse, sf)
	}

	stats := Stats{FilesScanned: len(files)}
	batches := batch(toParse, opts.batchSize())
	processed := 0
	emitProgress(opts.Progress, ProgressStart, 0, len(toParse), start, "")

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
			stats.DocumentsIndexed++
		}

		processed += len(b)
		emitProgress(opts.Progress, ProgressBatch, processed, len(toParse), start, b[len(b)-1].path)
	}

	idx := searchindex.New()
	for _, doc := range docStore.All() {
		idx.AddDocument(doc)
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
	emitProgress(opts.Progress, ProgressComplete, len(toParse), len(toParse), start, "")

	return &Result{Index: idx, Store: docStore, Stats: stats}, nil
}
