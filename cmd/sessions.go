package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/cortex-session/internal"
	"github.com/spf13/cobra"
)

var sessionsLimit int

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"list"},
	Short:   "List archived conversations",
	Long:    `List the conversations recorded in the archive, most recently updated first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := openArchive()
		if err != nil {
			return err
		}
		defer func() { _ = archive.Close() }()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		summaries, err := archive.ListConversations(ctx)
		if err != nil {
			return err
		}
		if sessionsLimit > 0 && len(summaries) > sessionsLimit {
			summaries = summaries[:sessionsLimit]
		}

		displaySessions(cmd.OutOrStdout(), summaries, time.Now())
		return nil
	},
}

func displaySessions(out io.Writer, summaries []internal.ConversationSummary, now time.Time) {
	if len(summaries) == 0 {
		_, _ = fmt.Fprintln(out, headerStyle.Render("📋 No conversations archived yet"))
		return
	}

	_, _ = fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📋 Found %d conversation(s)", len(summaries))))
	_, _ = fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Turns")+"\t"+titleStyle.Render("Updated")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 90))

	for _, s := range summaries {
		title := s.Title
		if title == "" {
			title = "Untitled"
		}
		if utf8.RuneCountInString(title) > 50 {
			title = internal.Truncate(title, 47)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
			idStyle.Render(shortID(s.ID)),
			lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Render(title),
			countStyle.Render(strconv.Itoa(s.TurnCount)),
			dateStyle.Render(relativeTime(s.UpdatedAt, now)))
	}

	_ = w.Flush()
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, idStyle.Render("💡 Tip: Use the full ID (e.g., ")+
		lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render(summaries[0].ID)+
		idStyle.Render(") with `cortex-session show <id>` or `cortex-session replay <id>`"))
}

// relativeTime formats t compactly depending on how long ago it was
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	t = t.Local()
	diff := now.Sub(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 0, "Show at most this many conversations")
}

// resolveConversationID expands an id prefix, as printed by sessions, to a
// full archived conversation id
func resolveConversationID(ctx context.Context, archive *internal.Archive, prefix string) (string, error) {
	summaries, err := archive.ListConversations(ctx)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, s := range summaries {
		if s.ID == prefix {
			return s.ID, nil
		}
		if strings.HasPrefix(s.ID, prefix) {
			matches = append(matches, s.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s (use 'cortex-session sessions' to see archived conversations)", internal.ErrConversationNotFound, prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("id prefix %q is ambiguous (%d matches)", prefix, len(matches))
	}
}
