package internal

import (
	"encoding/json"
	"strings"
)

// Event kinds emitted by the Cortex Agent run endpoint
const (
	KindResponse         = "response"
	KindText             = "response.text"
	KindTextDelta        = "response.text.delta"
	KindTextAnnotation   = "response.text.annotation"
	KindThinking         = "response.thinking"
	KindThinkingDelta    = "response.thinking.delta"
	KindToolUse          = "response.tool_use"
	KindToolResult       = "response.tool_result"
	KindToolResultStatus = "response.tool_result.status"
	KindToolResultDelta  = "response.tool_result.analyst.delta"
	KindTable            = "response.table"
	KindChart            = "response.chart"
	KindStatus           = "response.status"
	KindError            = "error"
	KindDone             = "done"

	// DefaultEventName is used for data lines with no preceding event line
	DefaultEventName = "message"
)

// Event is one decoded stream record, tagged with its arrival position.
// Data is either the parsed JSON value or the raw string when the data
// line was not valid JSON.
type Event struct {
	Seq  int    `json:"seq"`
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

// hasBase reports whether kind equals base or is a dotted sub-kind of it
func hasBase(kind, base string) bool {
	return kind == base || strings.HasPrefix(kind, base+".")
}

// IsText reports whether the event belongs to the text category
func (e Event) IsText() bool { return hasBase(e.Kind, KindText) }

// IsThinking reports whether the event belongs to the thinking category
func (e Event) IsThinking() bool { return hasBase(e.Kind, KindThinking) }

// IsTool reports whether the event belongs to the tool category
func (e Event) IsTool() bool {
	return hasBase(e.Kind, KindToolUse) || hasBase(e.Kind, KindToolResult)
}

// IsStructural reports whether the event terminates the response
func (e Event) IsStructural() bool {
	return e.Kind == KindResponse || e.Kind == KindDone
}

// Fields returns the payload as a JSON object, or nil for any other shape
func (e Event) Fields() map[string]any {
	m, _ := e.Data.(map[string]any)
	return m
}

// String returns a string payload field, or "" if absent or not a string
func (e Event) String(name string) string {
	s, _ := e.Fields()[name].(string)
	return s
}

// Field returns a raw payload field
func (e Event) Field(name string) (any, bool) {
	v, ok := e.Fields()[name]
	return v, ok
}

// ToolUseID returns the invocation id the event is keyed on
func (e Event) ToolUseID() string {
	return e.String("tool_use_id")
}

// Fragment returns the text carried by a text or thinking event
func (e Event) Fragment() (string, bool) {
	s, ok := e.Fields()["text"].(string)
	return s, ok
}

// ToolOutputFragment returns the streamed sub-output text of a tool delta.
// Analyst deltas nest it under "delta"; other tools put it at the top level.
func (e Event) ToolOutputFragment() string {
	if delta, ok := e.Fields()["delta"].(map[string]any); ok {
		if s, ok := delta["text"].(string); ok {
			return s
		}
	}
	return e.String("text")
}

// RawJSON re-encodes the payload for storage
func (e Event) RawJSON() (json.RawMessage, error) {
	return json.Marshal(e.Data)
}
