package parser

import "encoding/json"

// rawRecord mirrors one line of a session JSONL file. Only the
// fields the core cares about are declared; everything else is ignored.
type rawRecord struct {
	Type    string      `json:"type"`
	IsMeta  bool        `json:"isMeta"`
	Message *rawMessage `json:"message"`
	Session string      `json:"sessionId"`
}

type rawMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// contentPart is one element of message.content when it is an array. It is
// a tagged union over {text, tool_use, tool_result}; unrecognised Types are
// ignored rather than rejected, so a new part kind never breaks ingestion.
type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
	Name string `json:"name"` // tool_use
}

// ContentKind enumerates the tagged-union variants of a content part.
type ContentKind int

const (
	// KindText is a {type:"text", text:...} part or a bare string.
	KindText ContentKind = iota
	// KindToolUse is a {type:"tool_use", name:...} part.
	KindToolUse
	// KindToolResult is a {type:"tool_result", ...} part, ignored for text.
	KindToolResult
	// KindUnknown is any other/unrecognised tag.
	KindUnknown
)

func classify(p contentPart) ContentKind {
	switch p.Type {
	case "text", "":
		return KindText
	case "tool_use":
		return KindToolUse
	case "tool_result":
		return KindToolResult
	default:
		return KindUnknown
	}
}
