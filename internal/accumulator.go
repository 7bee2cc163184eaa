package internal

// TextValue is the reduced value of a text item
type TextValue struct {
	Text        string `json:"text" yaml:"text"`
	Annotations []any  `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

// ToolRecord is the merged state of one tool invocation
type ToolRecord struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	Type   string `json:"type,omitempty" yaml:"type,omitempty"`
	Input  any    `json:"input,omitempty" yaml:"input,omitempty"`
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
	Result any    `json:"result,omitempty" yaml:"result,omitempty"`
	Status string `json:"status,omitempty" yaml:"status,omitempty"`

	// HasResult distinguishes a null result payload from no result event
	HasResult bool `json:"has_result" yaml:"has_result"`
	declared  bool
}

// AccumulateText reduces a text run. Deltas append, a final event replaces
// everything accumulated so far, annotations are collected on the side.
func AccumulateText(events []Event) TextValue {
	var v TextValue
	for _, ev := range events {
		switch ev.Kind {
		case KindTextDelta:
			if s, ok := ev.Fragment(); ok {
				v.Text += s
			}
		case KindText:
			if s, ok := ev.Fragment(); ok {
				v.Text = s
			}
		case KindTextAnnotation:
			if a, ok := ev.Field("annotation"); ok {
				v.Annotations = append(v.Annotations, a)
			} else {
				v.Annotations = append(v.Annotations, ev.Data)
			}
		}
	}
	return v
}

// AccumulateThinking reduces a thinking run with the same delta/final rules
// as text
func AccumulateThinking(events []Event) string {
	var text string
	for _, ev := range events {
		s, ok := ev.Fragment()
		if !ok {
			continue
		}
		switch ev.Kind {
		case KindThinkingDelta:
			text += s
		case KindThinking:
			text = s
		}
	}
	return text
}

// AccumulateTools merges a tool run into one record per invocation id, in
// order of first appearance. Events without an id are attributed to the
// most recently seen id; a record started without any id takes the id of
// the next event that carries one.
func AccumulateTools(events []Event) []*ToolRecord {
	var (
		records []*ToolRecord
		byID    = make(map[string]*ToolRecord)
		current string
	)

	for _, ev := range events {
		prev := current
		id := ev.ToolUseID()
		if id == "" {
			id = current
		}
		current = id

		rec, ok := byID[id]
		if !ok {
			if orphan, has := byID[""]; has && prev == "" {
				// an id-less record adopts the first id that follows it
				delete(byID, "")
				orphan.ID = id
				rec = orphan
			} else {
				rec = &ToolRecord{ID: id}
				records = append(records, rec)
			}
			byID[id] = rec
		}

		switch ev.Kind {
		case KindToolUse:
			rec.declare(ev)
		case KindToolResult:
			if !rec.declared && (ev.String("name") != "" || ev.String("type") != "") {
				rec.declare(ev)
			}
			if !rec.HasResult {
				if content, ok := ev.Field("content"); ok {
					rec.Result = content
				} else {
					rec.Result = ev.Data
				}
				rec.HasResult = true
			}
			if s := ev.String("status"); s != "" {
				rec.Status = s
			}
		case KindToolResultStatus:
			if s := ev.String("status"); s != "" {
				rec.Status = s
			}
		case KindToolResultDelta:
			rec.Output += ev.ToolOutputFragment()
		}
	}
	return records
}

// declare sets the invocation fields once
func (r *ToolRecord) declare(ev Event) {
	if r.declared {
		return
	}
	r.Name = ev.String("name")
	r.Type = ev.String("type")
	r.Input, _ = ev.Field("input")
	r.declared = true
}

// Text returns the reduced value of a text item
func (it Item) Text() TextValue {
	return AccumulateText(it.Events)
}

// Thinking returns the reduced value of a thinking item
func (it Item) Thinking() string {
	return AccumulateThinking(it.Events)
}

// Tools returns the tool records of a tool item
func (it Item) Tools() []*ToolRecord {
	return AccumulateTools(it.Events)
}

// Message returns the human-readable message of a status or error item
func (it Item) Message() string {
	if len(it.Events) == 0 {
		return ""
	}
	ev := it.Events[0]
	if s, ok := ev.Data.(string); ok {
		return s
	}
	for _, name := range []string{"message", "error", "status"} {
		if s := ev.String(name); s != "" {
			return s
		}
	}
	return ""
}

// Value returns the accumulated value of the item: a TextValue, the
// thinking string, the tool records, or the payload of a standalone event
func (it Item) Value() any {
	switch it.Category {
	case CategoryText:
		return it.Text()
	case CategoryThinking:
		return it.Thinking()
	case CategoryTool:
		return it.Tools()
	default:
		if len(it.Events) == 0 {
			return nil
		}
		return it.Events[0].Data
	}
}
