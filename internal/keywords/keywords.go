// Package keywords computes TF-IDF keyword rankings over a corpus of
// conversation documents.
package keywords

import (
	"math"
	"sort"

	"github.com/mquayle/convoindex/internal/document"
	"github.com/mquayle/convoindex/internal/tokenizer"
)

// DefaultTopK is the default number of keywords kept per document.
const DefaultTopK = 10

// Model holds the per-corpus statistics needed to score any document's
// terms; it is rebuilt whenever the corpus changes materially.
type Model struct {
	documentCount int
	docFreq       map[string]int
}

// BuildModel scans every document's full text and records, for each term,
// in how many documents it appears.
func BuildModel(docs []*document.Document) *Model {
	m := &Model{docFreq: make(map[string]int)}
	for _, d := range docs {
		seen := make(map[string]struct{})
		for _, t := range tokenizer.Tokenize(d.FullText) {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			m.docFreq[t]++
		}
	}
	m.documentCount = len(docs)
	return m
}

// TopKeywords scores every term of fullText against the corpus model and
// returns the top k by score, descending, ties broken by raw frequency then
// lexicographically.
func (m *Model) TopKeywords(fullText string, k int) []document.Keyword {
	if k <= 0 {
		k = DefaultTopK
	}

	terms := tokenizer.Tokenize(fullText)
	if len(terms) == 0 {
		return nil
	}

	freq := make(map[string]int, len(terms))
	for _, t := range terms {
		freq[t]++
	}

	type scored struct {
		term  string
		score float64
		freq  int
	}
	candidates := make([]scored, 0, len(freq))
	for term, tf := range freq {
		df := m.docFreq[term]
		if df == 0 {
			df = 1 // term present in this document, so df is at least 1
		}
		idf := math.Log(float64(m.documentCount) / float64(df))
		if idf < 0 {
			idf = 0
		}
		score := float64(tf) * idf
		candidates = append(candidates, scored{term: term, score: score, freq: tf})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].freq != candidates[j].freq {
			return candidates[i].freq > candidates[j].freq
		}
		return candidates[i].term < candidates[j].term
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	out := make([]document.Keyword, len(candidates))
	for i, c := range candidates {
		out[i] = document.Keyword{Term: c.term, Score: round2(c.score)}
	}
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
