package searchindex

import (
	"sort"
	"testing"

	"github.com/mquayle/convoindex/internal/document"
	"github.com/mquayle/convoindex/internal/tokenizer"
)

func newDoc(id, project, fullText string) *document.Document {
	terms := tokenizer.Tokenize(fullText)
	sort.Strings(terms)
	return &document.Document{
		ID:          id,
		Project:     project,
		FullText:    fullText,
		Preview:     document.BuildPreview(fullText),
		UniqueTerms: terms,
	}
}

func TestIndex_ExactLookup(t *testing.T) {
	idx := New()
	idx.AddDocument(newDoc("doc1", "proj", "hello world javascript debugging session"))

	got := idx.Exact("javascript")
	if len(got) != 1 || got[0] != "doc1" {
		t.Errorf("Exact(javascript) = %v, want [doc1]", got)
	}
	if got := idx.Exact("nomatch"); len(got) != 0 {
		t.Errorf("Exact(nomatch) = %v, want empty", got)
	}
}

// Every term in a document's unique terms must appear in the inverted map
// with that document's id.
func TestIndex_Completeness(t *testing.T) {
	idx := New()
	doc := newDoc("doc1", "proj", "learning javascript and javabeans")
	idx.AddDocument(doc)

	for _, term := range doc.UniqueTerms {
		if !idx.HasTermPosting(term, doc.ID) {
			t.Errorf("term %q missing from postings for %s", term, doc.ID)
		}
	}
}

func TestIndex_PrefixExpansion(t *testing.T) {
	idx := New()
	idx.AddDocument(newDoc("doc1", "proj", "learning javascript and javabeans"))

	got := idx.Prefix("java")
	if len(got) != 1 || got[0] != "doc1" {
		t.Errorf("Prefix(java) = %v, want [doc1]", got)
	}
}

func TestIndex_FuzzyLookup(t *testing.T) {
	idx := New()
	idx.AddDocument(newDoc("doc1", "proj", "debugging sessions are fun"))

	// "debugg1ng" is edit distance 1 from "debugging".
	got := idx.Fuzzy("debugg1ng", DefaultFuzzyDistance("debugg1ng"))
	if len(got) != 1 || got[0] != "doc1" {
		t.Errorf("Fuzzy(debugg1ng) = %v, want [doc1]", got)
	}
}

func TestIndex_RemoveDocument(t *testing.T) {
	idx := New()
	idx.AddDocument(newDoc("doc1", "proj", "hello world"))
	idx.RemoveDocument("doc1")

	if got := idx.Exact("hello"); len(got) != 0 {
		t.Errorf("Exact(hello) after removal = %v, want empty", got)
	}
	if _, ok := idx.StoredFieldsFor("doc1"); ok {
		t.Error("expected doc1 to be gone from stored fields")
	}
}

func TestIndex_ReAddReplacesPostings(t *testing.T) {
	idx := New()
	idx.AddDocument(newDoc("doc1", "proj", "apples and bananas"))
	idx.AddDocument(newDoc("doc1", "proj", "oranges and grapes"))

	if got := idx.Exact("apples"); len(got) != 0 {
		t.Errorf("Exact(apples) = %v, want empty after re-add", got)
	}
	if got := idx.Exact("oranges"); len(got) != 1 {
		t.Errorf("Exact(oranges) = %v, want [doc1]", got)
	}
}

func TestDefaultFuzzyDistance(t *testing.T) {
	if d := DefaultFuzzyDistance("ab"); d != 0 {
		t.Errorf("DefaultFuzzyDistance(ab) = %d, want 0", d)
	}
	if d := DefaultFuzzyDistance("abcd"); d != 1 {
		t.Errorf("DefaultFuzzyDistance(abcd) = %d, want 1", d)
	}
}
