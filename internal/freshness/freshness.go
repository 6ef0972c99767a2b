// Package freshness implements the Freshness Controller: the decision of
// whether a persisted search index can be reused as-is, needs an
// incremental update, must be rebuilt, or should be treated as a
// protected historical archive.
package freshness

import (
	"os"
	"path/filepath"
	"time"
)

// Decision is one of the four outcomes the controller can return.
type Decision string

const (
	Reuse   Decision = "reuse"
	Update  Decision = "update"
	Rebuild Decision = "rebuild"
	Archive Decision = "archive"
)

// Default archive and stale ratios; callers may override via Config to
// match internal/config's IndexConfig.
const (
	defaultArchiveRatio = 2.0
	defaultStaleRatio   = 0.8
)

// SessionFile describes one candidate session file on disk.
type SessionFile struct {
	Path    string
	ModTime time.Time
}

// IndexState describes what the controller knows about the persisted
// index, independent of how it was loaded.
type IndexState struct {
	// Parseable is false when the index file failed to load or decode.
	Parseable bool
	ModTime   time.Time
	// DocumentCount is the number of documents recorded in the index.
	DocumentCount int
}

// Config carries the archive and stale ratios Decide compares against.
// Zero values fall back to the defaults above.
type Config struct {
	ArchiveRatio float64
	StaleRatio   float64
}

func (c Config) archiveRatio() float64 {
	if c.ArchiveRatio <= 0 {
		return defaultArchiveRatio
	}
	return c.ArchiveRatio
}

func (c Config) staleRatio() float64 {
	if c.StaleRatio <= 0 {
		return defaultStaleRatio
	}
	return c.StaleRatio
}

// Decide applies the four freshness rules in order and returns the
// controller's verdict. A session file newer than the index asks for an
// incremental update rather than a full rebuild; the index itself is still
// usable, it just trails the corpus.
func Decide(index IndexState, sessions []SessionFile, cfg Config) Decision {
	if !index.Parseable {
		return Rebuild
	}

	for _, s := range sessions {
		if s.ModTime.After(index.ModTime) {
			return Update
		}
	}

	currentCount := len(sessions)
	if currentCount == 0 {
		if index.DocumentCount > 0 {
			return Archive
		}
		return Reuse
	}

	if float64(index.DocumentCount) > cfg.archiveRatio()*float64(currentCount) {
		return Archive
	}

	if float64(index.DocumentCount)/float64(currentCount) < cfg.staleRatio() {
		return Rebuild
	}

	return Reuse
}

// ScanSessionFiles walks root for .jsonl session files and returns their
// path and modification time, matching the enumeration step the indexer
// performs before a build.
func ScanSessionFiles(root string) ([]SessionFile, error) {
	var out []SessionFile
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ".jsonl" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out = append(out, SessionFile{Path: path, ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
