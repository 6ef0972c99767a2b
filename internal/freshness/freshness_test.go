package freshness

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDecide_UnparseableIndexRebuilds(t *testing.T) {
	got := Decide(IndexState{Parseable: false}, nil, Config{})
	if got != Rebuild {
		t.Errorf("Decide(unparseable) = %s, want rebuild", got)
	}
}

func TestDecide_NewerSessionFileUpdates(t *testing.T) {
	indexTime := time.Now()
	sessions := []SessionFile{{Path: "a.jsonl", ModTime: indexTime.Add(time.Minute)}}

	got := Decide(IndexState{Parseable: true, ModTime: indexTime, DocumentCount: 1}, sessions, Config{})
	if got != Update {
		t.Errorf("Decide(newer session) = %s, want update", got)
	}
}

// A large historical index over a much smaller current file set is an
// archive, not a rebuild candidate.
func TestDecide_ArchiveProtection(t *testing.T) {
	indexTime := time.Now()
	sessions := make([]SessionFile, 100)
	for i := range sessions {
		sessions[i] = SessionFile{Path: "s.jsonl", ModTime: indexTime.Add(-time.Hour)}
	}

	got := Decide(IndexState{Parseable: true, ModTime: indexTime, DocumentCount: 1000}, sessions, Config{})
	if got != Archive {
		t.Errorf("Decide(1000 docs / 100 files) = %s, want archive", got)
	}
}

func TestDecide_StaleRatioRebuilds(t *testing.T) {
	indexTime := time.Now()
	sessions := make([]SessionFile, 100)
	for i := range sessions {
		sessions[i] = SessionFile{Path: "s.jsonl", ModTime: indexTime.Add(-time.Hour)}
	}

	// 70 docs / 100 files = 0.7, below the default 0.8 stale ratio, and
	// 70 is not > 2*100 so rule 3 doesn't apply.
	got := Decide(IndexState{Parseable: true, ModTime: indexTime, DocumentCount: 70}, sessions, Config{})
	if got != Rebuild {
		t.Errorf("Decide(70/100) = %s, want rebuild", got)
	}
}

func TestDecide_WithinRatiosReuses(t *testing.T) {
	indexTime := time.Now()
	sessions := make([]SessionFile, 100)
	for i := range sessions {
		sessions[i] = SessionFile{Path: "s.jsonl", ModTime: indexTime.Add(-time.Hour)}
	}

	got := Decide(IndexState{Parseable: true, ModTime: indexTime, DocumentCount: 95}, sessions, Config{})
	if got != Reuse {
		t.Errorf("Decide(95/100) = %s, want reuse", got)
	}
}

func TestDecide_CustomRatios(t *testing.T) {
	indexTime := time.Now()
	sessions := []SessionFile{{Path: "s.jsonl", ModTime: indexTime.Add(-time.Hour)}}

	cfg := Config{ArchiveRatio: 3.0, StaleRatio: 0.5}
	// 2 docs / 1 file = 2.0, under the custom 3.0 archive ratio and
	// above the custom 0.5 stale ratio, so this should reuse rather
	// than the default-ratio archive outcome.
	got := Decide(IndexState{Parseable: true, ModTime: indexTime, DocumentCount: 2}, sessions, cfg)
	if got != Reuse {
		t.Errorf("Decide with custom ratios = %s, want reuse", got)
	}
}

func TestScanSessionFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.jsonl"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b.jsonl"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	files, err := ScanSessionFiles(dir)
	if err != nil {
		t.Fatalf("ScanSessionFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("ScanSessionFiles returned %d files, want 2", len(files))
	}
}
