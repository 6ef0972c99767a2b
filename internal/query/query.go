// Package query implements the Query Engine: parsing a search string into
// required terms and phrases, retrieving AND-combined candidates from the
// Search Structure, scoring and ranking them, and producing highlighted
// previews with occurrence metadata.
package query

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/mquayle/convoindex/internal/document"
	"github.com/mquayle/convoindex/internal/searchindex"
	"github.com/mquayle/convoindex/internal/tokenizer"
)

// minTermLength is the shortest required term the engine will retrieve on;
// the Tokenizer's own allowlist can still let shorter technical acronyms
// through during indexing, but query terms below this length are dropped as
// noise.
const minTermLength = 3

// DefaultEnrichLimit is how many top-ranked candidates get full occurrence
// and preview enrichment.
const DefaultEnrichLimit = 20

// DefaultMinScore is the normalized-score floor below which a candidate is
// discarded.
const DefaultMinScore = 0.01

var quotedPhrase = regexp.MustCompile(`"([^"]+)"`)

// Occurrence is one match of a term or phrase within full_text.
type Occurrence struct {
	Offset  int    `json:"offset"`
	Length  int    `json:"length"`
	Matched string `json:"matched_word"`
	Term    string `json:"term"`
}

// Hit is one ranked search result.
type Hit struct {
	ID                string             `json:"id"`
	Project           string             `json:"project"`
	Modified          time.Time          `json:"modified"`
	MessageCount      int                `json:"message_count"`
	ToolsUsed         []string           `json:"tools_used"`
	TopKeywords       []document.Keyword `json:"top_keywords"`
	OriginalPath      string             `json:"original_path"`
	Score             float64            `json:"score"`
	Preview           string             `json:"preview"`
	Occurrences       []Occurrence       `json:"occurrences,omitempty"`
	CurrentOccurrence int                `json:"current_occurrence_index"`
	QueryWords        []string           `json:"query_words,omitempty"`
	QueryPhrases      []string           `json:"query_phrases,omitempty"`

	fullText string // carried through for enrichment, not serialized
}

// Result is the top-level response of a search.
type Result struct {
	Results      []Hit `json:"results"`
	TotalFound   int   `json:"total_found"`
	SearchTimeMs int64 `json:"search_time_ms"`
}

// DateRange restricts candidates to documents modified within [Start, End].
// A zero Start or End leaves that side of the range unbounded.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) active() bool {
	return !r.Start.IsZero() || !r.End.IsZero()
}

func (r DateRange) matches(modified time.Time) bool {
	if !r.Start.IsZero() && modified.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && modified.After(r.End) {
		return false
	}
	return true
}

// Options configures one Search call. ProjectFilter and DateRange narrow
// the candidate set before ranking.
type Options struct {
	Limit         int // max enriched results
	MinScore      float64
	FuzzyBound    func(term string) int // defaults to searchindex.DefaultFuzzyDistance
	ProjectFilter string                // exact, case-insensitive project name match; empty disables
	DateRange     DateRange             // modified-time bounds; zero value disables
}

func (o Options) limit() int {
	if o.Limit <= 0 {
		return DefaultEnrichLimit
	}
	return o.Limit
}

func (o Options) minScore() float64 {
	if o.MinScore <= 0 {
		return DefaultMinScore
	}
	return o.MinScore
}

func (o Options) fuzzyBound(term string) int {
	if o.FuzzyBound != nil {
		return o.FuzzyBound(term)
	}
	return searchindex.DefaultFuzzyDistance(term)
}

// parsed holds the query's required terms and quoted phrases.
type parsed struct {
	terms   []string
	phrases []string
}

func parseQuery(q string) parsed {
	var phrases []string
	for _, m := range quotedPhrase.FindAllStringSubmatch(q, -1) {
		p := strings.ToLower(strings.TrimSpace(m[1]))
		if p != "" {
			phrases = append(phrases, p)
		}
	}
	remainder := quotedPhrase.ReplaceAllString(q, " ")

	var terms []string
	seen := make(map[string]struct{})
	for _, t := range tokenizer.Tokenize(remainder) {
		if len(t) < minTermLength {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}
	return parsed{terms: terms, phrases: phrases}
}

// Search evaluates q against idx and returns a ranked, enriched result.
func Search(idx *searchindex.Index, q string, opts Options) Result {
	start := time.Now()

	pq := parseQuery(q)
	if len(pq.terms) == 0 && len(pq.phrases) == 0 {
		return Result{SearchTimeMs: 0}
	}

	candidates := retrieveCandidates(idx, pq, opts)
	if len(candidates) == 0 {
		return Result{SearchTimeMs: time.Since(start).Milliseconds()}
	}

	scored := rankCandidates(idx, candidates, pq, opts)

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		di, dj := scored[i].Modified, scored[j].Modified
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return scored[i].ID < scored[j].ID
	})

	total := len(scored)
	n := opts.limit()
	if n > len(scored) {
		n = len(scored)
	}
	for i := 0; i < n; i++ {
		enrich(&scored[i], pq)
	}

	return Result{
		Results:      scored,
		TotalFound:   total,
		SearchTimeMs: time.Since(start).Milliseconds(),
	}
}

// GetAll returns every stored document, optionally narrowed by
// ProjectFilter/DateRange, as Hits with relevance fixed at 1.0 rather than
// scored against a query. Results are sorted by Modified descending, then
// id, matching Search's tie-break order.
func GetAll(idx *searchindex.Index, opts Options) Result {
	start := time.Now()

	docs := idx.Documents()
	hits := make([]Hit, 0, len(docs))
	for _, doc := range docs {
		if opts.ProjectFilter != "" && !strings.EqualFold(doc.Project, opts.ProjectFilter) {
			continue
		}
		if opts.DateRange.active() && !opts.DateRange.matches(doc.Modified) {
			continue
		}
		hits = append(hits, Hit{
			ID:           doc.ID,
			Project:      doc.Project,
			Modified:     doc.Modified,
			MessageCount: doc.MessageCount,
			ToolsUsed:    doc.ToolsUsed,
			TopKeywords:  doc.TopKeywords,
			OriginalPath: doc.OriginalPath,
			Score:        1.0,
			Preview:      doc.Preview,
			fullText:     doc.FullText,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		di, dj := hits[i].Modified, hits[j].Modified
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return hits[i].ID < hits[j].ID
	})

	total := len(hits)
	if n := opts.limit(); n < len(hits) {
		hits = hits[:n]
	}

	return Result{
		Results:      hits,
		TotalFound:   total,
		SearchTimeMs: time.Since(start).Milliseconds(),
	}
}

// retrieveCandidates applies AND semantics across required terms via
// (exact ∪ prefix ∪ fuzzy) lookups, then a phrase post-filter on
// full_text.
func retrieveCandidates(idx *searchindex.Index, pq parsed, opts Options) []string {
	var ids map[string]struct{}

	for i, term := range pq.terms {
		termIDs := termMatches(idx, term, opts)
		if i == 0 {
			ids = termIDs
			continue
		}
		for id := range ids {
			if _, ok := termIDs[id]; !ok {
				delete(ids, id)
			}
		}
	}

	if ids == nil {
		// Only phrases were supplied: fall back to scanning every stored
		// document for the phrase filter below.
		ids = make(map[string]struct{})
		for _, d := range idx.Documents() {
			ids[d.ID] = struct{}{}
		}
	}

	if len(pq.phrases) > 0 {
		for id := range ids {
			doc, ok := idx.StoredFieldsFor(id)
			if !ok {
				delete(ids, id)
				continue
			}
			lower := strings.ToLower(doc.FullText)
			for _, phrase := range pq.phrases {
				if !strings.Contains(lower, phrase) {
					delete(ids, id)
					break
				}
			}
		}
	}

	if opts.ProjectFilter != "" || opts.DateRange.active() {
		for id := range ids {
			doc, ok := idx.StoredFieldsFor(id)
			if !ok {
				delete(ids, id)
				continue
			}
			if opts.ProjectFilter != "" && !strings.EqualFold(doc.Project, opts.ProjectFilter) {
				delete(ids, id)
				continue
			}
			if opts.DateRange.active() && !opts.DateRange.matches(doc.Modified) {
				delete(ids, id)
			}
		}
	}

	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	return out
}

func termMatches(idx *searchindex.Index, term string, opts Options) map[string]struct{} {
	set := make(map[string]struct{})
	for _, id := range idx.Exact(term) {
		set[id] = struct{}{}
	}
	for _, id := range idx.Prefix(term) {
		set[id] = struct{}{}
	}
	for _, id := range idx.Fuzzy(term, opts.fuzzyBound(term)) {
		set[id] = struct{}{}
	}
	return set
}
