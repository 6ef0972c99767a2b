package searchindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mquayle/convoindex/internal/document"
)

// DefaultIndexFileName is the default persisted index file name.
const DefaultIndexFileName = "search-index-v2.json"

// persistedIndex is the canonical on-disk document. It carries everything a
// fresh process needs to serve queries without re-reading any session file.
type persistedIndex struct {
	Version         int                         `json:"version"`
	BuiltAt         int64                       `json:"built_at"`
	BuildDurationMs int64                       `json:"build_duration_ms"`
	DocumentCount   int                         `json:"document_count"`
	Config          persistedConfig             `json:"config"`
	Postings        map[string][]string         `json:"postings"`
	Documents       map[string]*document.Document `json:"stored_documents"`
}

type persistedConfig struct {
	IndexedFields []string `json:"indexed_fields"`
	StoredFields  []string `json:"stored_fields"`
}

// Save atomically persists idx to path: acquire the writer lock, marshal
// to a temp file, then rename over the target.
func Save(idx *Index, path string) error {
	lock, err := acquireLock(path)
	if err != nil {
		return err
	}
	defer releaseLock(lock)

	idx.mu.RLock()
	snapshot := persistedIndex{
		Version:         SchemaVersion,
		BuiltAt:         idx.BuiltAt,
		BuildDurationMs: idx.BuildDurationMs,
		DocumentCount:   len(idx.stored),
		Config: persistedConfig{
			IndexedFields: IndexedFields,
			StoredFields:  StoredFields,
		},
		Postings:  make(map[string][]string, len(idx.postings)),
		Documents: make(map[string]*document.Document, len(idx.stored)),
	}
	for tok, set := range idx.postings {
		snapshot.Postings[tok] = idsOf(set)
	}
	for id, d := range idx.stored {
		snapshot.Documents[id] = d
	}
	idx.mu.RUnlock()

	data, err := json.Marshal(&snapshot)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create index dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp index: %w", err)
	}
	return nil
}

// Load reads a persisted index from path. Readers never take the writer
// lock: an atomic rename guarantees they observe either the previous or the
// newly committed file, never a partial write.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrIndexMissing
		}
		return nil, fmt.Errorf("read index: %w", err)
	}

	var snapshot persistedIndex
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
	}
	if snapshot.Version != SchemaVersion {
		return nil, fmt.Errorf("%w: schema version %d, want %d", ErrIndexCorrupt, snapshot.Version, SchemaVersion)
	}

	idx := New()
	idx.BuiltAt = snapshot.BuiltAt
	idx.BuildDurationMs = snapshot.BuildDurationMs
	for id, d := range snapshot.Documents {
		idx.stored[id] = d
	}
	for tok, ids := range snapshot.Postings {
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		idx.postings[tok] = set
		idx.vocabSet[tok] = struct{}{}
		idx.vocabulary = insertSorted(idx.vocabulary, tok)
	}
	return idx, nil
}
