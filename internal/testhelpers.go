package internal

import (
	"time"
)

// CreateTestSession creates a test session with sample data
func CreateTestSession(id string) *Session {
	return &Session{
		ID:     id,
		Source: "archive",
		Messages: []Message{
			{
				Actor:     "user",
				Content:   "What were last quarter's top regions?",
				Timestamp: time.Now().Format(time.RFC3339),
			},
			{
				Actor:     "assistant",
				Content:   "EMEA led with 42% of revenue.",
				Timestamp: time.Now().Format(time.RFC3339),
			},
		},
		Metadata: Metadata{
			Title:        "Test Conversation",
			MessageCount: 2,
			TurnCount:    2,
			CreatedAt:    time.Now().Format(time.RFC3339),
			Display:      DefaultDisplayConfig(),
		},
	}
}

// CreateTestSessionWithMessages creates a test session with custom messages
func CreateTestSessionWithMessages(id string, messages []Message) *Session {
	return &Session{
		ID:       id,
		Source:   "archive",
		Messages: messages,
		Metadata: Metadata{
			MessageCount: len(messages),
			Display:      DefaultDisplayConfig(),
		},
	}
}

// TextDelta builds a text delta payload
func TextDelta(text string) Record {
	return Record{Event: KindTextDelta, Data: map[string]any{"text": text}}
}

// TextFinal builds a final text payload
func TextFinal(text string) Record {
	return Record{Event: KindText, Data: map[string]any{"text": text}}
}

// ThinkingDelta builds a thinking delta payload
func ThinkingDelta(text string) Record {
	return Record{Event: KindThinkingDelta, Data: map[string]any{"text": text}}
}

// ThinkingFinal builds a final thinking payload
func ThinkingFinal(text string) Record {
	return Record{Event: KindThinking, Data: map[string]any{"text": text}}
}

// ToolUse builds a tool invocation payload
func ToolUse(id, name string, input map[string]any) Record {
	return Record{Event: KindToolUse, Data: map[string]any{
		"tool_use_id": id,
		"name":        name,
		"type":        "cortex_analyst_text_to_sql",
		"input":       input,
	}}
}

// ToolStatus builds a tool status payload
func ToolStatus(id, status string) Record {
	return Record{Event: KindToolResultStatus, Data: map[string]any{
		"tool_use_id": id,
		"status":      status,
	}}
}

// ToolResult builds a tool result payload
func ToolResult(id, status string, content any) Record {
	return Record{Event: KindToolResult, Data: map[string]any{
		"tool_use_id": id,
		"status":      status,
		"content":     content,
	}}
}

// StatusUpdate builds an interstitial status payload
func StatusUpdate(message string) Record {
	return Record{Event: KindStatus, Data: map[string]any{"status": "planning", "message": message}}
}

// SequenceRecords stamps records as consecutive events starting at seq 0
func SequenceRecords(records ...Record) []Event {
	events := make([]Event, len(records))
	for i, rec := range records {
		events[i] = Event{Seq: i, Kind: rec.Event, Data: rec.Data}
	}
	return events
}

// CreateTestConversation creates a finished conversation with one user turn
// and one agent turn holding thinking, tool, text and table items
func CreateTestConversation() *Conversation {
	conv := NewConversation()
	conv.AddUserTurn("Top regions by revenue?")

	turn := conv.StartAgentTurn()
	seq := NewSequencer(turn)
	for _, rec := range []Record{
		ThinkingDelta("Looking at "),
		ThinkingFinal("Looking at revenue by region."),
		ToolUse("t1", "revenue_analyst", map[string]any{"query": "revenue by region"}),
		ToolStatus("t1", "executing"),
		ToolResult("t1", "success", map[string]any{"sql": "SELECT 1"}),
		TextDelta("EMEA "),
		TextDelta("leads."),
		{Event: KindTable, Data: map[string]any{
			"title": "Revenue",
			"result_set": map[string]any{
				"resultSetMetaData": map[string]any{
					"rowType": []any{
						map[string]any{"name": "REGION"},
						map[string]any{"name": "REVENUE"},
					},
				},
				"data": []any{
					[]any{"EMEA", "42"},
					[]any{"AMER", "38"},
				},
			},
		}},
		{Event: KindDone, Data: "[DONE]"},
	} {
		if _, err := seq.Append(rec); err != nil {
			panic(err)
		}
	}
	turn.Complete()
	return conv
}
