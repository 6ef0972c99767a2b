package query

import (
	"strings"
	"testing"
	"time"

	"github.com/mquayle/convoindex/internal/document"
	"github.com/mquayle/convoindex/internal/keywords"
	"github.com/mquayle/convoindex/internal/searchindex"
)

func buildIndex(t *testing.T, docs ...*document.Document) *searchindex.Index {
	t.Helper()
	model := keywords.BuildModel(docs)
	idx := searchindex.New()
	for _, d := range docs {
		d.TopKeywords = model.TopKeywords(d.FullText, keywords.DefaultTopK)
		idx.AddDocument(d)
	}
	return idx
}

func doc(id, project, fullText string, modified time.Time) *document.Document {
	return &document.Document{
		ID:       id,
		Project:  project,
		FullText: fullText,
		Preview:  document.BuildPreview(fullText),
		Modified: modified,
	}
}

func TestSearch_SingleDocumentExactHit(t *testing.T) {
	now := time.Now()
	idx := buildIndex(t, doc("aaaaaaaa-aaaa-4aaa-aaaa-aaaaaaaaaaaa", "p1",
		"hello world javascript debugging session", now))

	result := Search(idx, "javascript", Options{})
	if len(result.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(result.Results))
	}
	hit := result.Results[0]
	if hit.Score <= 0.1 {
		t.Errorf("relevance = %v, want > 0.1", hit.Score)
	}
	if !strings.Contains(hit.Preview, "[HIGHLIGHT]javascript[/HIGHLIGHT]") {
		t.Errorf("preview %q missing highlighted javascript", hit.Preview)
	}
	if len(hit.Occurrences) != 1 {
		t.Errorf("total_occurrences = %d, want 1", len(hit.Occurrences))
	}
}

func TestSearch_PrefixExpansion(t *testing.T) {
	now := time.Now()
	idx := buildIndex(t, doc("doc1", "p1", "learning javascript and javabeans", now))

	result := Search(idx, "java", Options{})
	if len(result.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(result.Results))
	}
	hit := result.Results[0]
	if len(hit.Occurrences) != 2 {
		t.Fatalf("occurrences.length = %d, want 2", len(hit.Occurrences))
	}
	if hit.CurrentOccurrence != 0 {
		t.Errorf("current_occurrence_index = %d, want 0", hit.CurrentOccurrence)
	}
	if strings.Count(hit.Preview, highlightOpen) != 2 {
		t.Errorf("preview %q does not highlight both occurrences", hit.Preview)
	}
}

// Every returned document must match every required term.
func TestSearch_ANDSemantics(t *testing.T) {
	now := time.Now()
	idx := buildIndex(t,
		doc("docA", "p1", "apples and bananas", now),
		doc("docB", "p1", "apples and oranges", now),
	)

	result := Search(idx, "apples oranges", Options{})
	if len(result.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(result.Results))
	}
	if result.Results[0].ID != "docB" {
		t.Errorf("result id = %s, want docB", result.Results[0].ID)
	}
}

func TestSearch_EmptyQueryReturnsEmptyResult(t *testing.T) {
	idx := buildIndex(t, doc("doc1", "p1", "hello world", time.Now()))
	result := Search(idx, "to a", Options{}) // all stop words / too short
	if len(result.Results) != 0 || result.TotalFound != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

// For a fixed index, repeated searches must return identical ids in
// identical order.
func TestSearch_Determinism(t *testing.T) {
	now := time.Now()
	idx := buildIndex(t,
		doc("docA", "p1", "debugging javascript promises", now),
		doc("docB", "p2", "debugging rust borrow checker", now),
	)

	first := Search(idx, "debugging", Options{})
	second := Search(idx, "debugging", Options{})

	if len(first.Results) != len(second.Results) {
		t.Fatalf("result count differs across invocations")
	}
	for i := range first.Results {
		if first.Results[i].ID != second.Results[i].ID {
			t.Errorf("result order differs at %d: %s vs %s", i, first.Results[i].ID, second.Results[i].ID)
		}
	}
}

// Highlight markers must balance, and stripping them must yield a
// substring of the document's full text.
func TestSearch_HighlightBoundary(t *testing.T) {
	now := time.Now()
	idx := buildIndex(t, doc("doc1", "p1", "javascript is great, javascript is fun", now))

	result := Search(idx, "javascript", Options{})
	if len(result.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(result.Results))
	}
	preview := result.Results[0].Preview

	opens := strings.Count(preview, highlightOpen)
	closes := strings.Count(preview, highlightClose)
	if opens != closes {
		t.Errorf("unbalanced highlight markers: %d opens, %d closes", opens, closes)
	}

	stripped := strings.ReplaceAll(strings.ReplaceAll(preview, highlightOpen, ""), highlightClose, "")
	stripped = strings.TrimPrefix(stripped, "...")
	stripped = strings.TrimSuffix(stripped, "...")
	if !strings.Contains(result.Results[0].fullText, stripped) {
		t.Errorf("stripped preview %q is not a substring of full_text", stripped)
	}
}

func TestSearch_PhraseFilter(t *testing.T) {
	now := time.Now()
	idx := buildIndex(t,
		doc("docA", "p1", "the quick brown fox jumps", now),
		doc("docB", "p1", "the slow brown fox sleeps", now),
	)

	result := Search(idx, `"quick brown"`, Options{})
	if len(result.Results) != 1 || result.Results[0].ID != "docA" {
		t.Fatalf("phrase search = %+v, want only docA", result.Results)
	}
}

func TestSearch_ProjectFilter(t *testing.T) {
	now := time.Now()
	idx := buildIndex(t,
		doc("docA", "proj-one", "debugging javascript promises", now),
		doc("docB", "proj-two", "debugging javascript promises", now),
	)

	result := Search(idx, "javascript", Options{ProjectFilter: "proj-two"})
	if len(result.Results) != 1 || result.Results[0].ID != "docB" {
		t.Fatalf("project-filtered search = %+v, want only docB", result.Results)
	}
}

func TestSearch_DateRangeFilter(t *testing.T) {
	now := time.Now()
	old := now.AddDate(0, 0, -30)
	idx := buildIndex(t,
		doc("docRecent", "p1", "debugging javascript promises", now),
		doc("docOld", "p1", "debugging javascript promises", old),
	)

	result := Search(idx, "javascript", Options{DateRange: DateRange{Start: now.AddDate(0, 0, -1)}})
	if len(result.Results) != 1 || result.Results[0].ID != "docRecent" {
		t.Fatalf("date-filtered search = %+v, want only docRecent", result.Results)
	}
}

func TestGetAll(t *testing.T) {
	now := time.Now()
	older := now.Add(-time.Hour)
	idx := buildIndex(t,
		doc("docA", "p1", "apples and bananas", older),
		doc("docB", "p2", "oranges and grapes", now),
	)

	result := GetAll(idx, Options{})
	if result.TotalFound != 2 || len(result.Results) != 2 {
		t.Fatalf("GetAll = %+v, want 2 results", result)
	}
	for _, hit := range result.Results {
		if hit.Score != 1.0 {
			t.Errorf("hit %s score = %v, want 1.0", hit.ID, hit.Score)
		}
	}
	// Sorted by Modified descending: docB (now) before docA (older).
	if result.Results[0].ID != "docB" || result.Results[1].ID != "docA" {
		t.Errorf("GetAll order = [%s, %s], want [docB, docA]", result.Results[0].ID, result.Results[1].ID)
	}
}

func TestGetAll_ProjectFilter(t *testing.T) {
	now := time.Now()
	idx := buildIndex(t,
		doc("docA", "proj-one", "apples and bananas", now),
		doc("docB", "proj-two", "oranges and grapes", now),
	)

	result := GetAll(idx, Options{ProjectFilter: "proj-one"})
	if len(result.Results) != 1 || result.Results[0].ID != "docA" {
		t.Fatalf("GetAll project filter = %+v, want only docA", result.Results)
	}
}
