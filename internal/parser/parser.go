// Package parser converts one JSONL session file into a canonical
// conversation document.
package parser

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/mquayle/convoindex/internal/document"
	"github.com/mquayle/convoindex/internal/tokenizer"
)

// scannerInitialBuf sizes the bufio.Scanner for typical multi-megabyte
// tool-call lines.
const scannerInitialBuf = 1024 * 1024
const scannerMaxBuf = 10 * 1024 * 1024

// Stats reports per-file parse diagnostics.
type Stats struct {
	LinesTotal  int
	ParseErrors int
	Recovered   int // lines salvaged via regex recovery
}

// Result is what ParseFile returns: either a populated document or an
// "empty conversation" report, never both.
type Result struct {
	Empty bool
	Doc   *document.Document // nil when Empty
	// SessionID is the sessionId carried by the file's own records, when
	// present. Callers may prefer it over a filename-derived id.
	SessionID string
	Stats     Stats
}

// roleMarkerRe is used only to decide whether a malformed line looks
// recoverable at all, before attempting the bounded recovery regex.
var roleMarkerRe = regexp.MustCompile(`"role"\s*:\s*"(user|assistant)"`)

// recoveryRe extracts a role and a flat string content field from an
// otherwise-malformed line. This is best-effort and never guarantees
// fidelity.
var recoveryRe = regexp.MustCompile(`"role"\s*:\s*"(user|assistant)"[^}]*?"content"\s*:\s*"((?:[^"\\]|\\.)*)"`)

// ParseFile reads path and returns either a conversation document or an
// empty-conversation report. It never aborts on malformed lines; it only
// fails when the file itself cannot be read.
func ParseFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open session file %s: %w", path, err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read session file %s: %w", path, err)
	}
	hash := sha256.Sum256(raw)

	scanner := bufio.NewScanner(strings.NewReader(string(raw)))
	buf := make([]byte, scannerInitialBuf)
	scanner.Buffer(buf, scannerMaxBuf)

	var (
		textParts []string
		tools     = map[string]struct{}{}
		sessionID string
		stats     Stats
	)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		stats.LinesTotal++

		rec, ok := decodeLine(line, &stats)
		if !ok {
			continue
		}
		if !accepts(rec) {
			continue
		}
		if sessionID == "" && rec.Session != "" {
			sessionID = rec.Session
		}

		text, usedTools := extractContent(rec.Message.Content)
		if text != "" {
			textParts = append(textParts, text)
		}
		for _, name := range usedTools {
			tools[name] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan session file %s: %w", path, err)
	}

	if len(textParts) == 0 {
		return &Result{Empty: true, SessionID: sessionID, Stats: stats}, nil
	}

	fullText := strings.Join(textParts, " ")
	terms := tokenizer.Tokenize(fullText)
	uniqueSet := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		uniqueSet[t] = struct{}{}
	}
	uniqueTerms := make([]string, 0, len(uniqueSet))
	for t := range uniqueSet {
		uniqueTerms = append(uniqueTerms, t)
	}
	sort.Strings(uniqueTerms)

	toolNames := make([]string, 0, len(tools))
	for name := range tools {
		toolNames = append(toolNames, name)
	}
	sort.Strings(toolNames)

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat session file %s: %w", path, err)
	}

	doc := &document.Document{
		OriginalPath: path,
		Modified:     info.ModTime(),
		MessageCount: len(textParts),
		WordCount:    len(strings.Fields(fullText)),
		ContentHash:  hex.EncodeToString(hash[:]),
		FullText:     fullText,
		Preview:      document.BuildPreview(fullText),
		ToolsUsed:    toolNames,
		UniqueTerms:  uniqueTerms,
	}
	return &Result{Doc: doc, SessionID: sessionID, Stats: stats}, nil
}

// decodeLine attempts a strict JSON decode, falling back to bounded regex
// recovery. ok is false when nothing usable could be extracted.
func decodeLine(line string, stats *Stats) (*rawRecord, bool) {
	var rec rawRecord
	if err := json.Unmarshal([]byte(line), &rec); err == nil {
		return &rec, true
	}
	stats.ParseErrors++

	if !roleMarkerRe.MatchString(line) {
		return nil, false
	}
	m := recoveryRe.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	stats.Recovered++
	content, _ := json.Marshal(m[2])
	return &rawRecord{
		Type:    m[1],
		Message: &rawMessage{Role: m[1], Content: content},
	}, true
}

// accepts reports whether a record contributes to the conversation text.
func accepts(rec *rawRecord) bool {
	if rec == nil || rec.IsMeta {
		return false
	}
	if rec.Type != "user" && rec.Type != "assistant" {
		return false
	}
	if rec.Message == nil || rec.Message.Role == "" {
		return false
	}
	return len(rec.Message.Content) > 0
}

// extractContent walks message.content (string, tagged-union array, or
// absent) and returns the concatenated text plus any tool names referenced.
func extractContent(raw json.RawMessage) (string, []string) {
	if len(raw) == 0 {
		return "", nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, nil
	}

	var rawParts []json.RawMessage
	if err := json.Unmarshal(raw, &rawParts); err != nil {
		return "", nil
	}

	var texts []string
	var tools []string
	for _, rp := range rawParts {
		// a bare string element contributes as text
		var s string
		if err := json.Unmarshal(rp, &s); err == nil {
			if s != "" {
				texts = append(texts, s)
			}
			continue
		}

		var p contentPart
		if err := json.Unmarshal(rp, &p); err != nil {
			continue
		}
		switch classify(p) {
		case KindText:
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		case KindToolUse:
			if p.Name != "" {
				tools = append(tools, p.Name)
			}
		case KindToolResult, KindUnknown:
			// ignored for text extraction
		}
	}
	return strings.Join(texts, " "), tools
}
