package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulateText(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
		want    string
	}{
		{
			name:    "delta then final replaces",
			records: []Record{TextDelta("A"), TextDelta("B"), TextFinal("Z")},
			want:    "Z",
		},
		{
			name:    "delta only concatenates",
			records: []Record{TextDelta("A"), TextDelta("B")},
			want:    "AB",
		},
		{
			name:    "deltas after final append",
			records: []Record{TextFinal("Z"), TextDelta("!")},
			want:    "Z!",
		},
		{
			name:    "final without text keeps deltas",
			records: []Record{TextDelta("A"), {Event: KindText, Data: map[string]any{"content_index": 0}}},
			want:    "A",
		},
		{
			name:    "raw string payload is ignored",
			records: []Record{TextDelta("A"), {Event: KindTextDelta, Data: "not-json"}},
			want:    "A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AccumulateText(SequenceRecords(tt.records...))
			assert.Equal(t, tt.want, got.Text)
		})
	}
}

func TestAccumulateText_Annotations(t *testing.T) {
	got := AccumulateText(SequenceRecords(
		TextDelta("See [1]"),
		Record{Event: KindTextAnnotation, Data: map[string]any{"annotation": map[string]any{"type": "cortex_search_citation", "index": float64(1)}}},
		Record{Event: KindTextAnnotation, Data: map[string]any{"type": "bare"}},
	))

	assert.Equal(t, "See [1]", got.Text)
	require.Len(t, got.Annotations, 2)
	assert.Equal(t, map[string]any{"type": "cortex_search_citation", "index": float64(1)}, got.Annotations[0])
	assert.Equal(t, map[string]any{"type": "bare"}, got.Annotations[1])
}

func TestAccumulateThinking(t *testing.T) {
	assert.Equal(t, "Z", AccumulateThinking(SequenceRecords(ThinkingDelta("A"), ThinkingDelta("B"), ThinkingFinal("Z"))))
	assert.Equal(t, "AB", AccumulateThinking(SequenceRecords(ThinkingDelta("A"), ThinkingDelta("B"))))
}

func TestAccumulateTools_KeyedMerge(t *testing.T) {
	records := AccumulateTools(SequenceRecords(
		ToolUse("1", "x", map[string]any{"q": "revenue"}),
		ToolStatus("1", "running"),
		ToolResult("1", "done", map[string]any{"rows": float64(3)}),
	))

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "1", rec.ID)
	assert.Equal(t, "x", rec.Name)
	assert.Equal(t, "done", rec.Status)
	assert.True(t, rec.HasResult)
	assert.Equal(t, map[string]any{"rows": float64(3)}, rec.Result)
	assert.Equal(t, map[string]any{"q": "revenue"}, rec.Input)
}

func TestAccumulateTools_FieldRules(t *testing.T) {
	records := AccumulateTools(SequenceRecords(
		ToolUse("1", "first", map[string]any{"a": "1"}),
		ToolUse("1", "second", map[string]any{"a": "2"}),
		Record{Event: KindToolResultDelta, Data: map[string]any{"tool_use_id": "1", "delta": map[string]any{"text": "SELECT "}}},
		Record{Event: KindToolResultDelta, Data: map[string]any{"delta": map[string]any{"text": "1"}}},
		ToolResult("1", "", "first result"),
		ToolResult("1", "", "second result"),
		ToolStatus("1", "done"),
		ToolStatus("1", "archived"),
	))

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "first", rec.Name, "invocation fields are set once")
	assert.Equal(t, map[string]any{"a": "1"}, rec.Input)
	assert.Equal(t, "SELECT 1", rec.Output, "streamed output appends")
	assert.Equal(t, "first result", rec.Result, "result is set once")
	assert.Equal(t, "archived", rec.Status, "status is last write wins")
}

func TestAccumulateTools_MultipleIDs(t *testing.T) {
	records := AccumulateTools(SequenceRecords(
		ToolUse("a", "one", nil),
		ToolUse("b", "two", nil),
		ToolStatus("a", "done"),
	))

	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "done", records[0].Status)
	assert.Equal(t, "b", records[1].ID)
	assert.False(t, records[1].HasResult)
}

func TestAccumulateTools_SentinelAdoptsID(t *testing.T) {
	records := AccumulateTools(SequenceRecords(
		Record{Event: KindToolResultStatus, Data: map[string]any{"status": "queued"}},
		ToolUse("7", "late", nil),
	))

	require.Len(t, records, 1)
	assert.Equal(t, "7", records[0].ID)
	assert.Equal(t, "queued", records[0].Status)
	assert.Equal(t, "late", records[0].Name)
}

func TestItemValue(t *testing.T) {
	items := Segment(SequenceRecords(
		TextDelta("hi"),
		ThinkingFinal("hmm"),
		ToolResult("1", "ok", nil),
		Record{Event: KindTable, Data: map[string]any{"title": "t"}},
		Record{Event: KindStatus, Data: map[string]any{"message": "Planning"}},
	))
	require.Len(t, items, 5)

	assert.Equal(t, TextValue{Text: "hi"}, items[0].Value())
	assert.Equal(t, "hmm", items[1].Value())
	assert.Len(t, items[2].Value(), 1)
	assert.Equal(t, map[string]any{"title": "t"}, items[3].Value())
	assert.Equal(t, "Planning", items[4].Message())
}
