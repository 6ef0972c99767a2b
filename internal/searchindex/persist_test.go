package searchindex

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mquayle/convoindex/internal/document"
)

// A saved-then-loaded index must answer lookups identically to the index
// that was saved.
func TestSaveLoad_RoundTrip(t *testing.T) {
	idx := New()
	idx.AddDocument(newDoc("doc1", "proj-a", "debugging sessions with javascript"))
	idx.AddDocument(newDoc("doc2", "proj-b", "another conversation about rust"))
	idx.BuiltAt = 12345
	idx.BuildDurationMs = 42

	path := filepath.Join(t.TempDir(), DefaultIndexFileName)
	if err := Save(idx, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.DocumentCount() != 2 {
		t.Fatalf("DocumentCount = %d, want 2", loaded.DocumentCount())
	}
	if got := loaded.Exact("javascript"); len(got) != 1 || got[0] != "doc1" {
		t.Errorf("Exact(javascript) = %v, want [doc1]", got)
	}
	if got := loaded.Exact("rust"); len(got) != 1 || got[0] != "doc2" {
		t.Errorf("Exact(rust) = %v, want [doc2]", got)
	}
	if loaded.BuiltAt != 12345 || loaded.BuildDurationMs != 42 {
		t.Errorf("BuiltAt/BuildDurationMs = %d/%d, want 12345/42", loaded.BuiltAt, loaded.BuildDurationMs)
	}
	if _, ok := loaded.StoredFieldsFor("doc1"); !ok {
		t.Error("expected doc1 stored fields to survive round trip")
	}
}

func TestSave_NoTempFileLeftBehind(t *testing.T) {
	idx := New()
	idx.AddDocument(newDoc("doc1", "proj", "hello world"))

	path := filepath.Join(t.TempDir(), DefaultIndexFileName)
	if err := Save(idx, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected .tmp file to be renamed away, stat err = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected final index file to exist: %v", err)
	}
}

func TestLoad_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent.json")
	_, err := Load(path)
	if !errors.Is(err, ErrIndexMissing) {
		t.Errorf("Load(missing) error = %v, want ErrIndexMissing", err)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultIndexFileName)
	if err := os.WriteFile(path, []byte("{not valid json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrIndexCorrupt) {
		t.Errorf("Load(corrupt) error = %v, want ErrIndexCorrupt", err)
	}
}

func TestLoad_VersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultIndexFileName)
	stale := persistedIndex{
		Version:   SchemaVersion - 1,
		Documents: map[string]*document.Document{},
		Postings:  map[string][]string{},
	}
	data, err := json.Marshal(&stale)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	_, err = Load(path)
	if !errors.Is(err, ErrIndexCorrupt) {
		t.Errorf("Load(version mismatch) error = %v, want ErrIndexCorrupt", err)
	}
}

func TestAcquireLock_ReacquiresAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultIndexFileName)

	first, err := acquireLock(path)
	if err != nil {
		t.Fatalf("acquireLock (first): %v", err)
	}
	releaseLock(first)

	second, err := acquireLock(path)
	if err != nil {
		t.Fatalf("acquireLock (second): %v", err)
	}
	releaseLock(second)
}
