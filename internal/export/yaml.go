package export

import (
	"io"

	"github.com/iksnae/cortex-session/internal"
	"gopkg.in/yaml.v3"
)

// YAMLExporter writes the transcript as a YAML document
type YAMLExporter struct{}

// Export writes the session with two-space indentation
func (e *YAMLExporter) Export(session *internal.Session, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(session); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// Extension returns "yaml"
func (e *YAMLExporter) Extension() string {
	return "yaml"
}
