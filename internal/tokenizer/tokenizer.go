// Package tokenizer produces a canonical, filtered token stream shared by
// the session parser, the keyword extractor, and the query engine.
package tokenizer

import (
	"regexp"
	"strings"
)

// allowlist holds short tech acronyms that survive the minimum-length filter.
var allowlist = map[string]struct{}{
	"ai": {}, "ml": {}, "ui": {}, "ux": {}, "db": {}, "os": {},
	"js": {}, "ts": {}, "py": {}, "go": {}, "ci": {}, "cd": {}, "qa": {},
}

// stopWords combines a general English stop-word list with chat- and
// code-specific noise terms that would otherwise dominate the index.
var stopWords = buildStopWords()

func buildStopWords() map[string]struct{} {
	words := []string{
		// general English stop words
		"the", "and", "for", "are", "but", "not", "you", "all", "can", "had",
		"her", "was", "one", "our", "out", "day", "get", "has", "him", "his",
		"how", "man", "new", "now", "old", "see", "two", "way", "who", "boy",
		"did", "its", "let", "put", "say", "she", "too", "use", "that", "with",
		"have", "this", "will", "your", "from", "they", "know", "want", "been",
		"good", "much", "some", "time", "very", "when", "come", "here", "just",
		"like", "long", "make", "many", "over", "such", "take", "than", "them",
		"well", "were", "what", "about", "after", "again", "could", "every",
		"first", "found", "great", "house", "large", "learn", "never", "other",
		"place", "right", "small", "sound", "spell", "still", "study", "their",
		"there", "these", "thing", "think", "three", "water", "where", "which",
		"world", "would", "write", "into", "only", "also", "each", "need",
		"does", "going", "should", "being", "because", "while",
		// chat/meta noise
		"conversation", "message", "messages", "session", "sessions", "chat",
		"assistant", "user", "please", "thanks", "thank", "okay", "sure",
		"yes", "no", "hello", "hi",
		// generic code words
		"function", "const", "return", "import", "export", "class", "public",
		"private", "static", "void", "null", "true", "false", "else", "case",
		"switch", "break", "continue", "default", "package", "struct",
		"interface", "type", "func", "var", "let",
		// month abbreviations
		"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept",
		"oct", "nov", "dec",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

var (
	nonAlnumSpace = regexp.MustCompile(`[^a-z0-9\s]`)
	pureDigits    = regexp.MustCompile(`^[0-9]+$`)
	pureDashUnder = regexp.MustCompile(`^[_-]+$`)
	hexID         = regexp.MustCompile(`^[0-9a-f]{8,}$`)
	digitsLetters = regexp.MustCompile(`^[0-9]+[a-z]+$`)
	lettersDigits = regexp.MustCompile(`^[a-z]+[0-9]+$`)
	urlLike       = regexp.MustCompile(`^(https?|www|ftp)[a-z0-9]*$`)
)

// Tokenize runs the canonical pipeline over s: case-fold, strip non
// [a-z0-9\s], split on whitespace, drop short/noise/stop tokens. It never
// fails; empty input yields an empty, non-nil slice.
func Tokenize(s string) []string {
	lower := strings.ToLower(s)
	cleaned := nonAlnumSpace.ReplaceAllString(lower, " ")
	fields := strings.Fields(cleaned)

	out := make([]string, 0, len(fields))
	for _, tok := range fields {
		if !keep(tok) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// keep reports whether tok survives the length, code-noise, and stop-word
// filters (rules 4-6 of the pipeline).
func keep(tok string) bool {
	if len(tok) < 3 {
		_, ok := allowlist[tok]
		return ok
	}
	if isCodeNoise(tok) {
		return false
	}
	if _, stop := stopWords[tok]; stop {
		return false
	}
	return true
}

// isCodeNoise matches tokens that are punctuation remnants, identifiers, or
// constants rather than topical words. Tokens made of brackets, operators,
// punctuation or upper-case constants cannot reach this point, because the
// replace step in Tokenize has already turned those characters into spaces
// or lower case, so no pattern for them is checked here; for the same reason
// pureDashUnder never fires on a token produced by Tokenize.
func isCodeNoise(tok string) bool {
	switch {
	case pureDigits.MatchString(tok):
		return true
	case pureDashUnder.MatchString(tok):
		return true
	case hexID.MatchString(tok):
		return true
	case digitsLetters.MatchString(tok):
		return true
	case lettersDigits.MatchString(tok):
		return true
	case urlLike.MatchString(tok):
		return true
	default:
		return false
	}
}
