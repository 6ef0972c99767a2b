package searchindex

import "github.com/sahilm/fuzzy"

// fuzzyVocabMatches returns every vocabulary entry within edit distance
// maxDist of token. The bounded edit-distance computation is the source of
// truth for inclusion; sahilm/fuzzy orders same-distance candidates by its
// subsequence-match score so closer-feeling matches surface first.
func fuzzyVocabMatches(token string, vocabulary []string, maxDist int) []string {
	if maxDist <= 0 {
		return nil
	}

	candidates := make([]string, 0, len(vocabulary))
	for _, v := range vocabulary {
		if v == token {
			continue // exact matches are handled by Exact, not Fuzzy
		}
		if abs(len(v)-len(token)) > maxDist {
			continue
		}
		if levenshtein(token, v) <= maxDist {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	matches := fuzzy.Find(token, candidates)
	ordered := make([]string, 0, len(candidates))
	seen := make(map[int]struct{}, len(matches))
	for _, m := range matches {
		ordered = append(ordered, candidates[m.Index])
		seen[m.Index] = struct{}{}
	}
	// fuzzy.Find only returns subsequence matches; append any edit-distance
	// survivors it missed (e.g. a single substitution breaks subsequence
	// order) so the edit-distance bound remains the authoritative contract.
	for i, c := range candidates {
		if _, ok := seen[i]; !ok {
			ordered = append(ordered, c)
		}
	}
	return ordered
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// levenshtein computes the classic edit distance between a and b.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)

	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = minOf3(del, ins, sub)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func minOf3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
