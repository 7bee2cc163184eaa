package internal

import (
	"fmt"
	"unicode/utf8"
)

// TransportError represents a non-success response from the agent endpoint
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: status %d: %s", e.StatusCode, e.Body)
}

// DecodeError represents a data line that could not be parsed as JSON.
// It is informational: the record is still emitted with the raw string.
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error %q: %v", Truncate(e.Line, 64), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ArchiveError represents errors reading or writing the event archive
type ArchiveError struct {
	Path string
	Op   string // "open", "migrate", "write", "read"
	Err  error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// Truncate shortens s to max runes, marking the cut with "..."
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
