package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/iksnae/cortex-session/internal"
)

var (
	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	thinkingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true).
			Padding(0, 2)

	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true).
			Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("62")).
				Padding(0, 1)

	tableCellStyle = lipgloss.NewStyle().Padding(0, 1)
)

// maxTableRows caps result sets printed to the terminal
const maxTableRows = 50

// itemRenderer prints agent turns as their items settle. Items before a
// view's Settled index never change, so each is written exactly once.
type itemRenderer struct {
	w        io.Writer
	markdown *glamour.TermRenderer
	turnID   string
	done     int
}

func newItemRenderer(w io.Writer) *itemRenderer {
	style := glamour.WithAutoStyle()
	if !internal.IsTerminal(w) {
		style = glamour.WithStandardStyle("notty")
	}
	md, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(100))
	if err != nil {
		internal.LogDebug("markdown rendering disabled: %v", err)
		md = nil
	}
	return &itemRenderer{w: w, markdown: md}
}

// Update renders the newly settled items of view
func (r *itemRenderer) Update(view internal.TurnView) {
	if view.TurnID != r.turnID {
		r.turnID = view.TurnID
		r.done = 0
		_, _ = fmt.Fprintln(r.w, assistantMessageStyle.Render("🤖 Agent"))
	}
	for ; r.done < view.Settled && r.done < len(view.Items); r.done++ {
		r.renderItem(view.Items[r.done])
	}
}

// RenderTurn prints a finished turn in one go
func (r *itemRenderer) RenderTurn(turn *internal.Turn, display internal.DisplayConfig) {
	if turn.Role() == internal.RoleUser {
		renderUserTurn(r.w, turn.Text(), turn.CreatedAt())
		return
	}
	view := turn.View(display)
	view.Settled = len(view.Items)
	r.Update(view)
	if !view.Complete {
		_, _ = fmt.Fprintln(r.w, statusStyle.Render("(turn did not finish streaming)"))
	}
	_, _ = fmt.Fprintln(r.w)
}

func renderUserTurn(w io.Writer, text string, at time.Time) {
	header := userMessageStyle.Render("👤 You")
	if !at.IsZero() {
		header += " " + timestampStyle.Render(at.Format("15:04:05"))
	}
	_, _ = fmt.Fprintln(w, header)
	_, _ = fmt.Fprintln(w, messageContentStyle.Render(wrapText(text, 80)))
	_, _ = fmt.Fprintln(w)
}

func (r *itemRenderer) renderItem(it internal.Item) {
	switch it.Category {
	case internal.CategoryText:
		r.renderText(it.Text())
	case internal.CategoryThinking:
		_, _ = fmt.Fprintln(r.w, thinkingStyle.Render("💭 "+wrapText(it.Thinking(), 80)))
	case internal.CategoryTool:
		for _, rec := range it.Tools() {
			_, _ = fmt.Fprintln(r.w, toolStyle.Render(formatToolRecord(rec)))
		}
	case internal.CategoryData:
		r.renderData(it)
	case internal.CategoryStatus:
		if it.IsError() {
			_, _ = fmt.Fprintln(r.w, errorStyle.Render("❌ "+it.Message()))
		} else {
			_, _ = fmt.Fprintln(r.w, statusStyle.Render("· "+it.Message()))
		}
	}
}

func (r *itemRenderer) renderText(v internal.TextValue) {
	text := strings.TrimSpace(v.Text)
	if text == "" {
		return
	}
	if r.markdown != nil {
		if out, err := r.markdown.Render(text); err == nil {
			_, _ = fmt.Fprint(r.w, out)
			text = ""
		} else {
			internal.LogDebug("markdown render failed: %v", err)
		}
	}
	if text != "" {
		_, _ = fmt.Fprintln(r.w, messageContentStyle.Render(wrapText(text, 80)))
	}
	if n := len(v.Annotations); n > 0 {
		_, _ = fmt.Fprintln(r.w, timestampStyle.Render(fmt.Sprintf("  %d citation(s)", n)))
	}
}

func (r *itemRenderer) renderData(it internal.Item) {
	if td, ok := it.Table(); ok {
		_, _ = fmt.Fprintln(r.w, renderTable(td))
		return
	}
	if spec, ok := it.ChartSpec(); ok {
		_, _ = fmt.Fprintln(r.w, toolStyle.Render("📈 chart"))
		_, _ = fmt.Fprintln(r.w, messageContentStyle.Render(truncateLine(spec, 200)))
		return
	}
	_, _ = fmt.Fprintln(r.w, statusStyle.Render(fmt.Sprintf("(%s without content)", it.DataKind())))
}

// renderTable draws a result set, eliding rows past maxTableRows
func renderTable(td internal.TableData) string {
	rows := td.Rows
	more := 0
	if len(rows) > maxTableRows {
		more = len(rows) - maxTableRows
		rows = rows[:maxTableRows]
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(td.Columns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})

	var b strings.Builder
	if td.Title != "" {
		b.WriteString(tableHeaderStyle.Render("📊 "+td.Title) + "\n")
	}
	b.WriteString(t.String())
	if more > 0 {
		b.WriteString("\n" + timestampStyle.Render(fmt.Sprintf("... (%d more row(s))", more)))
	}
	return b.String()
}

func formatToolRecord(rec *internal.ToolRecord) string {
	name := rec.Name
	if name == "" {
		name = rec.ID
	}
	line := "🔧 " + name
	if rec.Status != "" {
		line += " [" + rec.Status + "]"
	}
	if rec.Input != nil {
		if in, err := json.Marshal(rec.Input); err == nil {
			line += "\n   input: " + truncateLine(string(in), 200)
		}
	}
	if rec.Output != "" {
		line += "\n   " + wrapText(rec.Output, 76)
	}
	return line
}

func truncateLine(s string, max int) string {
	return internal.Truncate(strings.ReplaceAll(s, "\n", " "), max)
}

func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				if currentLine != "" {
					wrapped = append(wrapped, currentLine)
				}
				currentLine = word
			} else if currentLine == "" {
				currentLine = word
			} else {
				currentLine += " " + word
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}
