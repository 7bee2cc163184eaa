package internal

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Normalizer converts conversations to the Session export format, keeping
// only the items the display config shows
type Normalizer struct {
	display DisplayConfig
}

// NewNormalizer creates a new Normalizer
func NewNormalizer(display DisplayConfig) *Normalizer {
	return &Normalizer{display: display}
}

// NormalizeConversation converts a Conversation to a Session
func (n *Normalizer) NormalizeConversation(conv *Conversation, source string) (*Session, error) {
	if conv == nil {
		return nil, fmt.Errorf("conversation is nil")
	}

	turns := conv.Turns()
	if len(turns) == 0 {
		return nil, fmt.Errorf("conversation has no turns")
	}

	metadata := Metadata{
		CreatedAt: formatTimestamp(conv.CreatedAt()),
		TurnCount: len(turns),
		Display:   n.display,
	}

	var messages []Message
	var last time.Time
	for _, turn := range turns {
		if turn.CreatedAt().After(last) {
			last = turn.CreatedAt()
		}
		if turn.Role() == RoleUser {
			if metadata.Title == "" {
				metadata.Title = Truncate(turn.Text(), 80)
			}
			messages = append(messages, Message{
				Timestamp: formatTimestamp(turn.CreatedAt()),
				Actor:     "user",
				Content:   turn.Text(),
				TurnID:    turn.ID(),
			})
			continue
		}

		if !turn.IsComplete() {
			metadata.IncompleteTurns++
		}
		for _, item := range turn.View(n.display).Items {
			msg := n.normalizeItem(item)
			msg.Timestamp = formatTimestamp(turn.CreatedAt())
			msg.TurnID = turn.ID()
			messages = append(messages, msg)
		}
	}

	metadata.UpdatedAt = formatTimestamp(last)
	metadata.MessageCount = len(messages)

	return &Session{
		ID:       conv.ID(),
		Source:   source,
		Messages: messages,
		Metadata: metadata,
	}, nil
}

// normalizeItem converts one visible item to a Message
func (n *Normalizer) normalizeItem(item Item) Message {
	msg := Message{Key: item.Key}

	switch item.Category {
	case CategoryText:
		v := item.Text()
		msg.Actor = "assistant"
		msg.Content = v.Text
		msg.Annotations = v.Annotations

	case CategoryThinking:
		msg.Actor = "thinking"
		msg.Content = item.Thinking()

	case CategoryTool:
		msg.Actor = "tool"
		msg.Tools = item.Tools()
		msg.Content = summarizeTools(msg.Tools)

	case CategoryData:
		msg.Actor = item.DataKind()
		msg.Data = item.Events[0].Data
		if td, ok := item.Table(); ok {
			msg.Content = td.Title
		}
		if spec, ok := item.ChartSpec(); ok {
			msg.Content = spec
		}

	case CategoryStatus:
		msg.Actor = "status"
		if item.IsError() {
			msg.Actor = "error"
		}
		msg.Content = item.Message()
	}
	return msg
}

// summarizeTools renders one line per invocation plus its streamed output
func summarizeTools(records []*ToolRecord) string {
	var b strings.Builder
	for i, rec := range records {
		if i > 0 {
			b.WriteString("\n")
		}
		name := rec.Name
		if name == "" {
			name = rec.ID
		}
		b.WriteString(name)
		if rec.Type != "" {
			fmt.Fprintf(&b, " [%s]", rec.Type)
		}
		if rec.Status != "" {
			fmt.Fprintf(&b, ": %s", rec.Status)
		}
		if rec.Input != nil {
			if in, err := json.Marshal(rec.Input); err == nil {
				fmt.Fprintf(&b, "\ninput: %s", in)
			}
		}
		if rec.Output != "" {
			fmt.Fprintf(&b, "\n%s", rec.Output)
		}
	}
	return b.String()
}

// formatTimestamp formats a time as ISO8601, or "" for the zero time
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// NormalizeAllConversations normalizes all conversations to sessions,
// skipping empty ones
func (n *Normalizer) NormalizeAllConversations(conversations []*Conversation, source string) ([]*Session, error) {
	var sessions []*Session

	for _, conv := range conversations {
		session, err := n.NormalizeConversation(conv, source)
		if err != nil {
			LogDebug("skipping conversation: %v", err)
			continue
		}
		sessions = append(sessions, session)
	}

	return sessions, nil
}
