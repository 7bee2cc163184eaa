package internal

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DisplayConfig decides which item categories reach presentation
type DisplayConfig struct {
	Text     bool `json:"text" yaml:"text"`
	Thinking bool `json:"thinking" yaml:"thinking"`
	Tool     bool `json:"tool" yaml:"tool"`
	Status   bool `json:"status" yaml:"status"`
	Table    bool `json:"table" yaml:"table"`
	Chart    bool `json:"chart" yaml:"chart"`
}

// DefaultDisplayConfig shows answers and data, hides the agent's workings
func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		Text:  true,
		Table: true,
		Chart: true,
	}
}

// DisplayOverrides holds caller-specified flags. Nil fields keep the base value.
type DisplayOverrides struct {
	Text     *bool `yaml:"text,omitempty"`
	Thinking *bool `yaml:"thinking,omitempty"`
	Tool     *bool `yaml:"tool,omitempty"`
	Status   *bool `yaml:"status,omitempty"`
	Table    *bool `yaml:"table,omitempty"`
	Chart    *bool `yaml:"chart,omitempty"`
}

// Apply merges the overrides over base
func (o DisplayOverrides) Apply(base DisplayConfig) DisplayConfig {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	cfg := base
	set(&cfg.Text, o.Text)
	set(&cfg.Thinking, o.Thinking)
	set(&cfg.Tool, o.Tool)
	set(&cfg.Status, o.Status)
	set(&cfg.Table, o.Table)
	set(&cfg.Chart, o.Chart)
	return cfg
}

// Merge layers other over o, other winning where both are set
func (o DisplayOverrides) Merge(other DisplayOverrides) DisplayOverrides {
	pick := func(a, b *bool) *bool {
		if b != nil {
			return b
		}
		return a
	}
	return DisplayOverrides{
		Text:     pick(o.Text, other.Text),
		Thinking: pick(o.Thinking, other.Thinking),
		Tool:     pick(o.Tool, other.Tool),
		Status:   pick(o.Status, other.Status),
		Table:    pick(o.Table, other.Table),
		Chart:    pick(o.Chart, other.Chart),
	}
}

// LoadDisplayOverrides reads overrides from a YAML file
func LoadDisplayOverrides(path string) (DisplayOverrides, error) {
	var o DisplayOverrides
	data, err := os.ReadFile(path)
	if err != nil {
		return o, fmt.Errorf("failed to read display config: %w", err)
	}
	if err := yaml.Unmarshal(data, &o); err != nil {
		return o, fmt.Errorf("failed to parse display config %s: %w", path, err)
	}
	return o, nil
}

// Visible reports whether an item passes the config. Data items are
// selected by their table/chart sub-kind. Error indicators are always shown.
func (c DisplayConfig) Visible(it Item) bool {
	switch it.Category {
	case CategoryText:
		return c.Text
	case CategoryThinking:
		return c.Thinking
	case CategoryTool:
		return c.Tool
	case CategoryStatus:
		return c.Status || it.IsError()
	case CategoryData:
		switch it.DataKind() {
		case "table":
			return c.Table
		case "chart":
			return c.Chart
		}
	}
	return false
}

// Filter drops hidden items, preserving order
func Filter(items []Item, cfg DisplayConfig) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if cfg.Visible(it) {
			out = append(out, it)
		}
	}
	return out
}
