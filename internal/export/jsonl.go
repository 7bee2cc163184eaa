package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/cortex-session/internal"
)

// JSONLExporter exports sessions in JSONL format (one message per line)
type JSONLExporter struct{}

// Export exports a session to JSONL format
func (e *JSONLExporter) Export(session *internal.Session, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, msg := range session.Messages {
		obj := map[string]interface{}{
			"session_id": session.ID,
			"actor":      msg.Actor,
			"content":    msg.Content,
		}

		if msg.Timestamp != "" {
			obj["timestamp"] = msg.Timestamp
		}
		if msg.TurnID != "" {
			obj["turn_id"] = msg.TurnID
		}
		if len(msg.Tools) > 0 {
			obj["tools"] = msg.Tools
		}
		if msg.Data != nil {
			obj["data"] = msg.Data
		}

		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
