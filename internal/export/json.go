package export

import (
	"encoding/json"
	"io"

	"github.com/iksnae/cortex-session/internal"
)

// JSONExporter writes the whole transcript as one indented document
type JSONExporter struct{}

// Export writes the session. HTML escaping is off so SQL and markdown in
// tool inputs and text items stay readable.
func (e *JSONExporter) Export(session *internal.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(session)
}

// Extension returns "json"
func (e *JSONExporter) Extension() string {
	return "json"
}
