// Package config loads and saves convoindex's runtime configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config is the root configuration structure.
type Config struct {
	Projects ProjectsConfig `json:"projects"`
	Index    IndexConfig    `json:"index"`
	Search   SearchConfig   `json:"search"`
}

// ProjectsConfig configures where session files are discovered.
type ProjectsConfig struct {
	// Root is the directory containing one subdirectory per project, each
	// holding that project's *.jsonl session files. Defaults to
	// ~/.claude/projects.
	Root string `json:"root"`
}

// IndexConfig configures the persistent search index.
type IndexConfig struct {
	// Path is the persisted index file. Defaults to
	// <ExportDir>/search-index-v2.json.
	Path string `json:"path"`
	// BatchSize caps how many session files are parsed per rebuild batch.
	BatchSize int `json:"batchSize"`
	// TopKeywords bounds how many TF-IDF keywords are stored per document.
	TopKeywords int `json:"topKeywords"`
	// ArchiveRatio protects historical indexes: an index is treated as an
	// archive when its document count exceeds ArchiveRatio times the
	// current session file count.
	ArchiveRatio float64 `json:"archiveRatio"`
	// StaleRatio is the threshold below which a shrinking corpus forces a
	// rebuild.
	StaleRatio float64 `json:"staleRatio"`
}

// SearchConfig configures query-time behavior.
type SearchConfig struct {
	// DefaultLimit bounds how many enriched results a search returns.
	DefaultLimit int `json:"defaultLimit"`
	// MinScore discards candidates below this normalised relevance score.
	MinScore float64 `json:"minScore"`
}

// Default returns the baseline configuration, rooted at ~/.claude/projects.
func Default() *Config {
	home, _ := os.UserHomeDir()
	root := filepath.Join(home, ".claude", "projects")
	exportDir := filepath.Join(home, ".claude")

	return &Config{
		Projects: ProjectsConfig{
			Root: root,
		},
		Index: IndexConfig{
			Path:         filepath.Join(exportDir, "search-index-v2.json"),
			BatchSize:    20,
			TopKeywords:  10,
			ArchiveRatio: 2.0,
			StaleRatio:   0.8,
		},
		Search: SearchConfig{
			DefaultLimit: 20,
			MinScore:     0.01,
		},
	}
}

// Load reads a configuration file, falling back to Default() for any field
// absent from the file. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalises out-of-range values to safe defaults.
func (c *Config) Validate() error {
	if c.Index.BatchSize <= 0 {
		c.Index.BatchSize = 20
	}
	if c.Index.TopKeywords <= 0 {
		c.Index.TopKeywords = 10
	}
	if c.Index.ArchiveRatio <= 1 {
		c.Index.ArchiveRatio = 2.0
	}
	if c.Index.StaleRatio <= 0 || c.Index.StaleRatio > 1 {
		c.Index.StaleRatio = 0.8
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 20
	}
	if c.Search.MinScore < 0 {
		c.Search.MinScore = 0.01
	}
	return nil
}
