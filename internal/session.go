package internal

// Session is a conversation flattened for export: one message per user
// turn and one per visible item of each agent turn
type Session struct {
	ID       string    `json:"id" yaml:"id"`
	Source   string    `json:"source" yaml:"source"` // "live", "archive", "capture"
	Messages []Message `json:"messages" yaml:"messages"`
	Metadata Metadata  `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Message is one exported entry
type Message struct {
	Timestamp   string        `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Actor       string        `json:"actor" yaml:"actor"` // "user", "assistant", "thinking", "tool", "table", "chart", "status", "error"
	Content     string        `json:"content" yaml:"content"`
	TurnID      string        `json:"turn_id,omitempty" yaml:"turn_id,omitempty"`
	Key         string        `json:"key,omitempty" yaml:"key,omitempty"`
	Annotations []any         `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Tools       []*ToolRecord `json:"tools,omitempty" yaml:"tools,omitempty"`
	Data        any           `json:"data,omitempty" yaml:"data,omitempty"`
}

// Metadata contains additional session information
type Metadata struct {
	Title           string        `json:"title,omitempty" yaml:"title,omitempty"`
	CreatedAt       string        `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt       string        `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	MessageCount    int           `json:"message_count" yaml:"message_count"`
	TurnCount       int           `json:"turn_count" yaml:"turn_count"`
	IncompleteTurns int           `json:"incomplete_turns,omitempty" yaml:"incomplete_turns,omitempty"`
	Display         DisplayConfig `json:"display" yaml:"display"`
}
