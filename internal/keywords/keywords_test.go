package keywords

import (
	"testing"

	"github.com/mquayle/convoindex/internal/document"
)

func TestBuildModel_DocFreq(t *testing.T) {
	docs := []*document.Document{
		{FullText: "apples and bananas"},
		{FullText: "apples and oranges"},
	}
	m := BuildModel(docs)
	if m.documentCount != 2 {
		t.Fatalf("documentCount = %d, want 2", m.documentCount)
	}
	if m.docFreq["apples"] != 2 {
		t.Errorf("docFreq[apples] = %d, want 2", m.docFreq["apples"])
	}
	if m.docFreq["bananas"] != 1 {
		t.Errorf("docFreq[bananas] = %d, want 1", m.docFreq["bananas"])
	}
}

func TestTopKeywords_DistinctiveTermsRankHigher(t *testing.T) {
	docs := []*document.Document{
		{FullText: "javascript debugging session with javascript errors"},
		{FullText: "python debugging session"},
		{FullText: "golang debugging session"},
	}
	m := BuildModel(docs)

	kws := m.TopKeywords(docs[0].FullText, 3)
	if len(kws) == 0 {
		t.Fatal("expected at least one keyword")
	}
	if kws[0].Term != "javascript" {
		t.Errorf("top keyword = %q, want %q (distinctive + repeated)", kws[0].Term, "javascript")
	}
	// Only "javascript" and "errors" are distinctive; the common terms score
	// zero and may fill later slots, but never the top two.
	if len(kws) < 2 {
		t.Fatalf("got %d keywords, want at least 2", len(kws))
	}
	for _, kw := range kws[:2] {
		if kw.Term == "debugging" || kw.Term == "session" {
			t.Errorf("common term %q should not outrank distinctive terms", kw.Term)
		}
	}
}

func TestTopKeywords_BoundedByK(t *testing.T) {
	docs := []*document.Document{
		{FullText: "alpha bravo charlie delta echo foxtrot golf hotel india juliet kilo lima"},
	}
	m := BuildModel(docs)
	kws := m.TopKeywords(docs[0].FullText, 3)
	if len(kws) != 3 {
		t.Errorf("len(kws) = %d, want 3", len(kws))
	}
}

func TestTopKeywords_ScoresRoundedToTwoDecimals(t *testing.T) {
	docs := []*document.Document{
		{FullText: "unique term repeated unique term repeated unique"},
		{FullText: "different words entirely here"},
	}
	m := BuildModel(docs)
	kws := m.TopKeywords(docs[0].FullText, 5)
	for _, kw := range kws {
		rounded := round2(kw.Score)
		if rounded != kw.Score {
			t.Errorf("score %v not rounded to two decimals", kw.Score)
		}
	}
}
