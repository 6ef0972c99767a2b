package query

import (
	"strings"

	"github.com/mquayle/convoindex/internal/document"
	"github.com/mquayle/convoindex/internal/searchindex"
)

// Relevance boost weights.
const (
	boostExactKeyword = 10.0
	boostMaxTermFreq  = 20.0
	boostPreviewHit   = 3.0
	boostProjectHit   = 5.0
	boostFuzzyKeyword = 2.0
)

// rankCandidates scores and normalizes every candidate, dropping anything
// below the configured minimum score.
func rankCandidates(idx *searchindex.Index, ids []string, pq parsed, opts Options) []Hit {
	theoreticalMax := theoreticalMaxScore(len(pq.terms), len(pq.phrases))

	out := make([]Hit, 0, len(ids))
	for _, id := range ids {
		doc, ok := idx.StoredFieldsFor(id)
		if !ok {
			continue
		}

		score := termWeightSum(doc.FullText, pq.terms)
		score += keywordBoosts(doc, pq.terms)
		score += previewAndProjectBoosts(doc, pq.terms)
		score += phraseWeightSum(doc.FullText, pq.phrases)

		norm := score / theoreticalMax
		if norm > 1 {
			norm = 1
		}
		if norm < opts.minScore() {
			continue
		}

		out = append(out, Hit{
			ID:           doc.ID,
			Project:      doc.Project,
			Modified:     doc.Modified,
			MessageCount: doc.MessageCount,
			ToolsUsed:    doc.ToolsUsed,
			TopKeywords:  doc.TopKeywords,
			OriginalPath: doc.OriginalPath,
			Score:        norm,
			fullText:     doc.FullText,
		})
	}
	return out
}

// termWeightSum computes a BM25-like per-term weight: term frequency in
// full_text scaled by an inverse-length saturation curve, summed across
// required terms.
func termWeightSum(fullText string, terms []string) float64 {
	lower := strings.ToLower(fullText)
	const k1 = 1.2
	const b = 0.75
	const avgDocLen = 200.0 // stable reference length

	docLen := float64(len(strings.Fields(lower)))
	if docLen == 0 {
		docLen = 1
	}

	var sum float64
	for _, t := range terms {
		tf := float64(strings.Count(lower, t))
		if tf == 0 {
			continue
		}
		denom := tf + k1*(1-b+b*docLen/avgDocLen)
		sum += (tf * (k1 + 1)) / denom
	}
	return sum
}

// keywordBoosts applies the +10-per-exact-keyword and +20-capped
// term-frequency boosts.
func keywordBoosts(doc *document.Document, terms []string) float64 {
	var boost float64
	lower := strings.ToLower(doc.FullText)

	for _, t := range terms {
		for _, kw := range doc.TopKeywords {
			if kw.Term == t {
				boost += boostExactKeyword
				break
			}
		}
		tf := strings.Count(lower, t)
		freqBoost := float64(tf) * 2.0
		if freqBoost > boostMaxTermFreq {
			freqBoost = boostMaxTermFreq
		}
		boost += freqBoost
	}
	return boost
}

// previewAndProjectBoosts applies the preview-hit, project-hit, and
// non-exact keyword boosts. The keyword boost counts only keywords that
// extend a term as a prefix; a keyword within edit distance of a term but
// not sharing it as a prefix gets no boost.
func previewAndProjectBoosts(doc *document.Document, terms []string) float64 {
	var boost float64
	lowerPreview := strings.ToLower(doc.Preview)
	lowerProject := strings.ToLower(doc.Project)

	for _, t := range terms {
		if strings.Contains(lowerPreview, t) {
			boost += boostPreviewHit
		}
		if strings.Contains(lowerProject, t) {
			boost += boostProjectHit
		}
		for _, kw := range doc.TopKeywords {
			if kw.Term != t && strings.HasPrefix(kw.Term, t) {
				boost += boostFuzzyKeyword
			}
		}
	}
	return boost
}

// phraseWeightSum gives a fixed BM25-like weight to each matched phrase so
// phrase-only queries (no required terms) still produce a positive,
// normalizable score.
const perPhraseWeight = 5.0

func phraseWeightSum(fullText string, phrases []string) float64 {
	if len(phrases) == 0 {
		return 0
	}
	lower := strings.ToLower(fullText)
	var sum float64
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			sum += perPhraseWeight
		}
	}
	return sum
}

// theoreticalMaxScore is the per-term ceiling (BM25 weight cap of ~2.2 at
// k1=1.2 plus every boost) times the number of required terms, plus a
// per-phrase ceiling, used to normalize raw scores into [0,1].
func theoreticalMaxScore(numTerms, numPhrases int) float64 {
	if numTerms == 0 && numPhrases == 0 {
		numTerms = 1
	}
	const perTermBM25Cap = 2.2
	perTerm := perTermBM25Cap + boostExactKeyword + boostMaxTermFreq + boostPreviewHit + boostProjectHit + boostFuzzyKeyword
	return perTerm*float64(numTerms) + perPhraseWeight*float64(numPhrases)
}
