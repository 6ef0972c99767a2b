package query

import (
	"regexp"
	"sort"
	"strings"
)

const (
	highlightOpen  = "[HIGHLIGHT]"
	highlightClose = "[/HIGHLIGHT]"
	previewContext = 100
)

// enrich populates occurrences and the highlighted preview for a top-N
// candidate.
func enrich(h *Hit, pq parsed) {
	occurrences := findOccurrences(h.fullText, pq)
	sort.Slice(occurrences, func(i, j int) bool { return occurrences[i].Offset < occurrences[j].Offset })

	h.Occurrences = occurrences
	h.CurrentOccurrence = 0
	h.QueryWords = pq.terms
	h.QueryPhrases = pq.phrases

	if len(occurrences) == 0 {
		h.Preview = h.fullText
		if len(h.Preview) > 2*previewContext {
			h.Preview = h.Preview[:2*previewContext] + "..."
		}
		return
	}

	h.Preview = buildPreview(h.fullText, occurrences, 0)
}

// findOccurrences locates every required-term and phrase match within
// full_text.
func findOccurrences(fullText string, pq parsed) []Occurrence {
	var occurrences []Occurrence

	for _, term := range pq.terms {
		re := regexp.MustCompile(`(?i)\b(` + regexp.QuoteMeta(term) + `\w*)`)
		for _, m := range re.FindAllStringSubmatchIndex(fullText, -1) {
			start, end := m[2], m[3]
			occurrences = append(occurrences, Occurrence{
				Offset:  start,
				Length:  end - start,
				Matched: fullText[start:end],
				Term:    term,
			})
		}
	}

	lower := strings.ToLower(fullText)
	for _, phrase := range pq.phrases {
		offset := 0
		for {
			idx := strings.Index(lower[offset:], phrase)
			if idx < 0 {
				break
			}
			start := offset + idx
			occurrences = append(occurrences, Occurrence{
				Offset:  start,
				Length:  len(phrase),
				Matched: fullText[start : start+len(phrase)],
				Term:    phrase,
			})
			offset = start + len(phrase)
		}
	}

	return occurrences
}

// buildPreview renders the preview window around occurrences[around],
// marking every occurrence that falls within the window.
func buildPreview(fullText string, occurrences []Occurrence, around int) string {
	if around < 0 || around >= len(occurrences) {
		around = 0
	}
	anchor := occurrences[around]

	start := anchor.Offset - previewContext
	truncatedStart := start > 0
	if start < 0 {
		start = 0
		truncatedStart = false
	}
	end := anchor.Offset + anchor.Length + previewContext
	truncatedEnd := end < len(fullText)
	if end > len(fullText) {
		end = len(fullText)
		truncatedEnd = false
	}

	var windowed []Occurrence
	for _, occ := range occurrences {
		if occ.Offset >= start && occ.Offset+occ.Length <= end {
			windowed = append(windowed, occ)
		}
	}

	var sb strings.Builder
	if truncatedStart {
		sb.WriteString("...")
	}

	cursor := start
	for _, occ := range windowed {
		if occ.Offset < cursor {
			continue // overlapping match already covered
		}
		sb.WriteString(fullText[cursor:occ.Offset])
		sb.WriteString(highlightOpen)
		sb.WriteString(fullText[occ.Offset : occ.Offset+occ.Length])
		sb.WriteString(highlightClose)
		cursor = occ.Offset + occ.Length
	}
	sb.WriteString(fullText[cursor:end])

	if truncatedEnd {
		sb.WriteString("...")
	}
	return sb.String()
}

// NextPreview and PreviousPreview let an external navigator step through
// occurrences in O(1) without re-querying.
func NextPreview(h *Hit, fullText string) (string, int) {
	if len(h.Occurrences) == 0 {
		return h.Preview, h.CurrentOccurrence
	}
	idx := (h.CurrentOccurrence + 1) % len(h.Occurrences)
	return buildPreview(fullText, h.Occurrences, idx), idx
}

func PreviousPreview(h *Hit, fullText string) (string, int) {
	if len(h.Occurrences) == 0 {
		return h.Preview, h.CurrentOccurrence
	}
	idx := h.CurrentOccurrence - 1
	if idx < 0 {
		idx = len(h.Occurrences) - 1
	}
	return buildPreview(fullText, h.Occurrences, idx), idx
}
