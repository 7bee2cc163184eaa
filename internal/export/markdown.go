package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/cortex-session/internal"
)

// MarkdownExporter exports sessions in Markdown format
type MarkdownExporter struct{}

// Export exports a session to Markdown format
func (e *MarkdownExporter) Export(session *internal.Session, w io.Writer) error {
	title := session.Metadata.Title
	if title == "" {
		title = "Conversation " + session.ID
	}
	_, _ = fmt.Fprintf(w, "# %s\n\n", title)

	_, _ = fmt.Fprintf(w, "**ID:** %s  \n", session.ID)
	_, _ = fmt.Fprintf(w, "**Source:** %s  \n", session.Source)
	if session.Metadata.CreatedAt != "" {
		_, _ = fmt.Fprintf(w, "**Created:** %s  \n", session.Metadata.CreatedAt)
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(session.Messages))

	if session.Metadata.IncompleteTurns > 0 {
		_, _ = fmt.Fprintf(w, "> %d turn(s) did not finish streaming.\n\n", session.Metadata.IncompleteTurns)
	}

	_, _ = fmt.Fprintf(w, "---\n\n")
	_, _ = fmt.Fprintf(w, "## Messages\n\n")

	for i, msg := range session.Messages {
		timestamp := ""
		if msg.Timestamp != "" {
			timestamp = fmt.Sprintf(" (%s)", msg.Timestamp)
		}

		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", msg.Actor, timestamp, renderBody(msg))

		if i < len(session.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// renderBody formats the message content by actor
func renderBody(msg internal.Message) string {
	switch msg.Actor {
	case "thinking":
		return quote(escapeMarkdown(msg.Content))
	case "tool":
		return "```\n" + msg.Content + "\n```"
	case "table":
		if td, ok := internal.ParseTable(msg.Data); ok {
			return markdownTable(td)
		}
	case "chart":
		if spec, ok := internal.ParseChartSpec(msg.Data); ok {
			return "```json\n" + spec + "\n```"
		}
	case "error":
		return "> **Error:** " + escapeMarkdown(msg.Content)
	case "status":
		return "_" + escapeMarkdown(msg.Content) + "_"
	}
	return escapeMarkdown(msg.Content)
}

func quote(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}
	return strings.Join(lines, "\n")
}

// markdownTable renders a result set as a pipe table
func markdownTable(td internal.TableData) string {
	var b strings.Builder
	if td.Title != "" {
		fmt.Fprintf(&b, "*%s*\n\n", td.Title)
	}
	if len(td.Columns) == 0 {
		return strings.TrimSpace(b.String())
	}

	b.WriteString("| " + strings.Join(escapeCells(td.Columns), " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(td.Columns)) + "\n")
	for _, row := range td.Rows {
		b.WriteString("| " + strings.Join(escapeCells(row), " | ") + " |\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		c = strings.ReplaceAll(c, "|", "\\|")
		out[i] = strings.ReplaceAll(c, "\n", " ")
	}
	return out
}

// escapeMarkdown escapes markdown special characters
func escapeMarkdown(text string) string {
	// Basic escaping - preserve code blocks
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
