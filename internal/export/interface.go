package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/iksnae/cortex-session/internal"
)

// Exporter writes one transcript in a single format
type Exporter interface {
	Export(session *internal.Session, w io.Writer) error
	Extension() string
}

var factories = map[string]func() Exporter{
	"jsonl":    func() Exporter { return &JSONLExporter{} },
	"md":       func() Exporter { return &MarkdownExporter{} },
	"markdown": func() Exporter { return &MarkdownExporter{} },
	"yaml":     func() Exporter { return &YAMLExporter{} },
	"yml":      func() Exporter { return &YAMLExporter{} },
	"json":     func() Exporter { return &JSONExporter{} },
}

// Formats lists the canonical format names, one per exporter
func Formats() []string {
	seen := make(map[string]bool)
	var names []string
	for _, f := range factories {
		if ext := f().Extension(); !seen[ext] {
			seen[ext] = true
			names = append(names, ext)
		}
	}
	sort.Strings(names)
	return names
}

// NewExporter returns the exporter for a format name; names are case-insensitive
func NewExporter(format string) (Exporter, error) {
	f, ok := factories[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return nil, fmt.Errorf("unsupported format: %q (supported: %s)", format, strings.Join(Formats(), ", "))
	}
	return f(), nil
}
