// Package document defines the canonical in-memory conversation document
// produced by the session parser and consumed by the rest of the pipeline.
package document

import "time"

// PreviewLength is the number of runes of full text kept in Preview.
const PreviewLength = 200

// Keyword is one TF-IDF-scored term attached to a document.
type Keyword struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// Document is the canonical, normalised representation of one session used
// for indexing, ranking, and previewing.
type Document struct {
	ID           string    `json:"id"`
	Project      string    `json:"project"`
	OriginalPath string    `json:"original_path"`
	Modified     time.Time `json:"modified"`
	MessageCount int       `json:"message_count"`
	WordCount    int       `json:"word_count"`
	ContentHash  string    `json:"content_hash"` // hex-encoded SHA-256
	FullText     string    `json:"full_text"`
	Preview      string    `json:"preview"`
	ToolsUsed    []string  `json:"tools_used"`
	TopKeywords  []Keyword `json:"top_keywords"`
	// UniqueTerms holds every distinct filtered token appearing in FullText,
	// stored sorted for deterministic serialization.
	UniqueTerms []string `json:"unique_terms"`
}

// UniqueTermSet returns UniqueTerms as a lookup set.
func (d *Document) UniqueTermSet() map[string]struct{} {
	set := make(map[string]struct{}, len(d.UniqueTerms))
	for _, t := range d.UniqueTerms {
		set[t] = struct{}{}
	}
	return set
}

// BuildPreview truncates full text to PreviewLength runes, appending "..."
// when truncated.
func BuildPreview(fullText string) string {
	runes := []rune(fullText)
	if len(runes) <= PreviewLength {
		return fullText
	}
	return string(runes[:PreviewLength]) + "..."
}
