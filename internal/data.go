package internal

import (
	"encoding/json"
	"fmt"
)

// TableData is the tabular content of a table event
type TableData struct {
	Title   string
	Columns []string
	Rows    [][]string
}

// Table extracts the result set of a table item. The result set may sit at
// the top level of the payload or under "table".
func (it Item) Table() (TableData, bool) {
	if it.DataKind() != "table" {
		return TableData{}, false
	}
	return ParseTable(it.Events[0].Data)
}

// ParseTable extracts a result set from a raw table payload
func ParseTable(data any) (TableData, bool) {
	fields, _ := data.(map[string]any)
	if nested, ok := fields["table"].(map[string]any); ok {
		if _, has := fields["result_set"]; !has {
			fields = nested
		}
	}

	rs, ok := fields["result_set"].(map[string]any)
	if !ok {
		return TableData{}, false
	}

	var td TableData
	td.Title, _ = fields["title"].(string)

	if meta, ok := rs["resultSetMetaData"].(map[string]any); ok {
		if rowType, ok := meta["rowType"].([]any); ok {
			for _, col := range rowType {
				name := ""
				if c, ok := col.(map[string]any); ok {
					name, _ = c["name"].(string)
				}
				td.Columns = append(td.Columns, name)
			}
		}
	}

	if data, ok := rs["data"].([]any); ok {
		for _, row := range data {
			cells, ok := row.([]any)
			if !ok {
				continue
			}
			out := make([]string, len(cells))
			for i, cell := range cells {
				out[i] = cellString(cell)
			}
			td.Rows = append(td.Rows, out)
		}
	}
	return td, true
}

// ChartSpec returns the chart specification of a chart item as JSON text
func (it Item) ChartSpec() (string, bool) {
	if it.DataKind() != "chart" {
		return "", false
	}
	return ParseChartSpec(it.Events[0].Data)
}

// ParseChartSpec reads the chart_spec field of a chart payload. The spec
// may arrive as JSON text or as an object; objects are marshaled.
func ParseChartSpec(data any) (string, bool) {
	fields, ok := data.(map[string]any)
	if !ok {
		return "", false
	}
	spec, ok := fields["chart_spec"]
	if !ok || spec == nil {
		return "", false
	}
	if s, ok := spec.(string); ok {
		return s, true
	}
	b, err := json.Marshal(spec)
	if err != nil {
		return "", false
	}
	return string(b), true
}

func cellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64, bool:
		return fmt.Sprint(c)
	default:
		b, err := json.Marshal(c)
		if err != nil {
			return fmt.Sprint(c)
		}
		return string(b)
	}
}
