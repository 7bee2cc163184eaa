package internal

import (
	"reflect"
	"testing"
)

func TestStripSQL(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{
			name: "top level",
			in:   map[string]any{"sql": "SELECT 1", "text": "ok"},
			want: map[string]any{"text": "ok"},
		},
		{
			name: "nested objects and arrays",
			in: map[string]any{
				"content": []any{
					map[string]any{"type": "json", "json": map[string]any{"sql": "SELECT 1", "text": "t"}},
					"plain",
				},
			},
			want: map[string]any{
				"content": []any{
					map[string]any{"type": "json", "json": map[string]any{"text": "t"}},
					"plain",
				},
			},
		},
		{
			name: "raw string untouched",
			in:   "not-json",
			want: "not-json",
		},
		{
			name: "sql_explanation kept",
			in:   map[string]any{"sql_explanation": "why"},
			want: map[string]any{"sql_explanation": "why"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripSQL(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("StripSQL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStripFields_DoesNotMutateInput(t *testing.T) {
	in := map[string]any{"sql": "x", "inner": map[string]any{"sql": "y"}}
	_ = StripFields(in, "sql")

	if _, ok := in["sql"]; !ok {
		t.Error("StripFields() mutated the input map")
	}
	if _, ok := in["inner"].(map[string]any)["sql"]; !ok {
		t.Error("StripFields() mutated a nested map")
	}
}

func TestStripFields_NoNames(t *testing.T) {
	in := map[string]any{"sql": "x"}
	if got := StripFields(in); !reflect.DeepEqual(got, in) {
		t.Errorf("StripFields() with no names = %v, want input unchanged", got)
	}
}
