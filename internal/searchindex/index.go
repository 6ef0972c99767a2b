// Package searchindex implements the persistent Search Structure: an
// inverted index over token postings with exact, prefix, and fuzzy lookup,
// plus the stored fields needed to rank, preview, and locate occurrences
// without re-reading raw session files.
package searchindex

import (
	"sort"
	"strings"
	"sync"

	"github.com/mquayle/convoindex/internal/document"
	"github.com/mquayle/convoindex/internal/tokenizer"
)

// SchemaVersion is bumped whenever the persisted format changes shape.
const SchemaVersion = 2

// StoredFields lists the document fields returned alongside a hit.
var StoredFields = []string{
	"project", "modified", "message_count", "preview", "tools_used",
	"top_keywords", "original_path", "full_text",
}

// IndexedFields lists the fields whose token streams feed the inverted map.
var IndexedFields = []string{"full_text", "project", "top_keywords"}

// Index is the in-memory, queryable Search Structure. Index is safe for
// concurrent use by one writer and many readers.
type Index struct {
	mu sync.RWMutex

	// postings maps a token to the set of document ids containing it.
	postings map[string]map[string]struct{}
	// vocabulary is the sorted, de-duplicated token set; it backs prefix
	// and fuzzy lookup without rescanning postings.
	vocabulary []string
	vocabSet   map[string]struct{}

	// stored holds the full document record for every indexed document.
	stored map[string]*document.Document

	BuiltAt         int64 // unix millis; stamped by the caller, not Index itself
	BuildDurationMs int64
}

// New creates an empty Index.
func New() *Index {
	return &Index{
		postings: make(map[string]map[string]struct{}),
		vocabSet: make(map[string]struct{}),
		stored:   make(map[string]*document.Document),
	}
}

// AddDocument indexes doc's full text, project name, and joined keyword
// list, and stores its fields for later retrieval. Re-adding a document
// with the same id replaces its prior postings and stored fields.
func (idx *Index) AddDocument(doc *document.Document) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.stored[doc.ID]; exists {
		idx.removeLocked(doc.ID)
	}

	for _, tok := range idx.tokensFor(doc) {
		idx.addPostingLocked(tok, doc.ID)
	}
	idx.stored[doc.ID] = doc
}

// tokensFor computes the union of token streams across IndexedFields.
func (idx *Index) tokensFor(doc *document.Document) []string {
	var all []string
	all = append(all, tokenizer.Tokenize(doc.FullText)...)
	all = append(all, tokenizer.Tokenize(doc.Project)...)

	var kwTerms []string
	for _, kw := range doc.TopKeywords {
		kwTerms = append(kwTerms, kw.Term)
	}
	all = append(all, tokenizer.Tokenize(strings.Join(kwTerms, " "))...)
	return all
}

// RefreshKeywords re-indexes only the keyword-derived tokens for doc,
// called after the Keyword Extractor assigns TopKeywords post-batch.
func (idx *Index) RefreshKeywords(doc *document.Document) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var kwTerms []string
	for _, kw := range doc.TopKeywords {
		kwTerms = append(kwTerms, kw.Term)
	}
	for _, tok := range tokenizer.Tokenize(strings.Join(kwTerms, " ")) {
		idx.addPostingLocked(tok, doc.ID)
	}
	idx.stored[doc.ID] = doc
}

func (idx *Index) addPostingLocked(tok, docID string) {
	set, ok := idx.postings[tok]
	if !ok {
		set = make(map[string]struct{})
		idx.postings[tok] = set
	}
	set[docID] = struct{}{}

	if _, ok := idx.vocabSet[tok]; !ok {
		idx.vocabSet[tok] = struct{}{}
		idx.vocabulary = insertSorted(idx.vocabulary, tok)
	}
}

func insertSorted(sorted []string, v string) []string {
	i := sort.SearchStrings(sorted, v)
	sorted = append(sorted, "")
	copy(sorted[i+1:], sorted[i:])
	sorted[i] = v
	return sorted
}

// RemoveDocument removes doc's postings and stored fields.
func (idx *Index) RemoveDocument(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(id)
}

func (idx *Index) removeLocked(id string) {
	doc, ok := idx.stored[id]
	if !ok {
		return
	}
	for _, tok := range idx.tokensFor(doc) {
		set, ok := idx.postings[tok]
		if !ok {
			continue
		}
		delete(set, id)
		if len(set) == 0 {
			delete(idx.postings, tok)
			delete(idx.vocabSet, tok)
			idx.vocabulary = removeSorted(idx.vocabulary, tok)
		}
	}
	delete(idx.stored, id)
}

func removeSorted(sorted []string, v string) []string {
	i := sort.SearchStrings(sorted, v)
	if i < len(sorted) && sorted[i] == v {
		sorted = append(sorted[:i], sorted[i+1:]...)
	}
	return sorted
}

// Exact returns the posting list for a token, exactly as indexed.
func (idx *Index) Exact(token string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idsOf(idx.postings[token])
}

// Prefix returns the union of posting lists for every indexed token whose
// casefolded form starts with prefix.
func (idx *Index) Prefix(prefix string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	start := sort.SearchStrings(idx.vocabulary, prefix)
	union := make(map[string]struct{})
	for i := start; i < len(idx.vocabulary); i++ {
		tok := idx.vocabulary[i]
		if !strings.HasPrefix(tok, prefix) {
			break
		}
		for id := range idx.postings[tok] {
			union[id] = struct{}{}
		}
	}
	return idsOf(union)
}

// Fuzzy returns the union of posting lists for every indexed token within
// edit distance maxDist of token.
func (idx *Index) Fuzzy(token string, maxDist int) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if maxDist <= 0 {
		return nil
	}
	union := make(map[string]struct{})
	for _, match := range fuzzyVocabMatches(token, idx.vocabulary, maxDist) {
		for id := range idx.postings[match] {
			union[id] = struct{}{}
		}
	}
	return idsOf(union)
}

// DefaultFuzzyDistance returns the default fuzzy bound: edit distance 1
// for tokens of length >= 4, 0 (disabled) otherwise.
func DefaultFuzzyDistance(token string) int {
	if len(token) >= 4 {
		return 1
	}
	return 0
}

// StoredFieldsFor returns the stored document for id.
func (idx *Index) StoredFieldsFor(id string) (*document.Document, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	d, ok := idx.stored[id]
	return d, ok
}

// DocumentCount returns the number of stored documents.
func (idx *Index) DocumentCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.stored)
}

// Documents returns every stored document.
func (idx *Index) Documents() []*document.Document {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]*document.Document, 0, len(idx.stored))
	for _, d := range idx.stored {
		out = append(out, d)
	}
	return out
}

// HasTermPosting reports whether docID is present in token's posting list;
// it backs the index-completeness invariant.
func (idx *Index) HasTermPosting(token, docID string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	set, ok := idx.postings[token]
	if !ok {
		return false
	}
	_, ok = set[docID]
	return ok
}

func idsOf(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
