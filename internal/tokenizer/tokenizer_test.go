package tokenizer

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenize_Basic(t *testing.T) {
	got := Tokenize("Hello World! Debugging JavaScript sessions.")
	want := []string{"hello", "world", "debugging", "javascript", "sessions"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestTokenize_Empty(t *testing.T) {
	got := Tokenize("")
	if len(got) != 0 {
		t.Errorf("Tokenize(\"\") = %v, want empty", got)
	}
}

func TestTokenize_AllowlistShortTokens(t *testing.T) {
	got := Tokenize("AI and ML improve UX but not ab")
	for _, want := range []string{"ai", "ml", "ux"} {
		found := false
		for _, g := range got {
			if g == want {
				found = true
			}
		}
		if !found {
			t.Errorf("Tokenize() missing allowlisted token %q in %v", want, got)
		}
	}
	for _, tok := range got {
		if tok == "ab" {
			t.Errorf("Tokenize() unexpectedly kept non-allowlisted short token %q", tok)
		}
	}
}

func TestTokenize_DropsStopWords(t *testing.T) {
	got := Tokenize("the conversation and the message were function calls")
	for _, stop := range []string{"the", "and", "were", "conversation", "message", "function"} {
		for _, g := range got {
			if g == stop {
				t.Errorf("Tokenize() kept stop word %q", stop)
			}
		}
	}
}

func TestTokenize_DropsCodeNoise(t *testing.T) {
	got := Tokenize("12345 deadbeef12 item999 999item ---")
	if len(got) != 0 {
		t.Errorf("Tokenize() = %v, want all code-noise tokens dropped", got)
	}
}

// The output must never contain a stop word, a too-short non-allowlisted
// token, or a code-noise token.
func TestTokenize_Purity(t *testing.T) {
	samples := []string{
		"Let's debug this function() { return x; } // TODO",
		"See https://example.com/path for the API_KEY constant",
		"deadbeef1234cafe is the commit sha for PR_1234",
		"I have 2 cats and 3 dogs and it costs $100",
	}
	for _, s := range samples {
		for _, tok := range Tokenize(s) {
			if len(tok) < 3 {
				if _, ok := allowlist[tok]; !ok {
					t.Errorf("Tokenize(%q) kept short non-allowlisted token %q", s, tok)
				}
				continue
			}
			if isCodeNoise(tok) {
				t.Errorf("Tokenize(%q) kept code-noise token %q", s, tok)
			}
			if _, stop := stopWords[tok]; stop {
				t.Errorf("Tokenize(%q) kept stop word %q", s, tok)
			}
		}
	}
}

// Re-tokenizing the joined output must yield the same token stream.
func TestTokenize_Idempotent(t *testing.T) {
	samples := []string{
		"Hello World! Debugging JavaScript sessions.",
		"The quick brown fox jumps over the lazy dog 123abc",
		"",
	}
	for _, s := range samples {
		first := Tokenize(s)
		second := Tokenize(strings.Join(first, " "))
		if !reflect.DeepEqual(first, second) {
			t.Errorf("Tokenize not idempotent for %q: first=%v second=%v", s, first, second)
		}
	}
}
