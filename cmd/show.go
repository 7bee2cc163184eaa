package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/cortex-session/internal"
	"github.com/spf13/cobra"
)

var (
	limit    int
	since    string
	showTurn string
)

var (
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Show the transcript of an archived conversation",
	Long: `Display the transcript of an archived conversation as a list of messages,
one per user question and one per visible item of each answer.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		display, err := resolveDisplay(cfg)
		if err != nil {
			return err
		}

		archive, err := openArchive()
		if err != nil {
			return err
		}
		defer func() { _ = archive.Close() }()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		id, err := resolveConversationID(ctx, archive, args[0])
		if err != nil {
			return err
		}
		conv, err := archive.LoadConversation(ctx, id)
		if err != nil {
			return err
		}

		session, err := internal.NewNormalizer(display).NormalizeConversation(conv, "archive")
		if err != nil {
			return fmt.Errorf("failed to normalize conversation: %w", err)
		}

		out := cmd.OutOrStdout()
		displaySessionHeader(out, session)

		messagesToShow := session.Messages
		if showTurn != "" {
			turn, err := resolveTurn(conv, showTurn)
			if err != nil {
				return err
			}
			messagesToShow = messagesOfTurn(messagesToShow, turn.ID())
		}
		if since != "" {
			sinceTime, err := time.Parse(time.RFC3339, since)
			if err != nil {
				return fmt.Errorf("invalid --since timestamp format (expected RFC3339): %w", err)
			}
			messagesToShow = messagesSince(messagesToShow, sinceTime)
		}

		totalFiltered := len(messagesToShow)
		if limit > 0 && limit < len(messagesToShow) {
			messagesToShow = messagesToShow[:limit]
		}

		for i, msg := range messagesToShow {
			displayMessage(out, i+1, msg, totalFiltered)
		}

		if limit > 0 && limit < totalFiltered {
			_, _ = fmt.Fprintln(out)
			_, _ = fmt.Fprintln(out, timestampStyle.Render(fmt.Sprintf("... (%d more message(s))", totalFiltered-limit)))
		}

		return nil
	},
}

// resolveTurn finds a turn by id or unique id prefix
func resolveTurn(conv *internal.Conversation, ref string) (*internal.Turn, error) {
	if turn, ok := conv.Turn(ref); ok {
		return turn, nil
	}
	var match *internal.Turn
	for _, turn := range conv.Turns() {
		if !strings.HasPrefix(turn.ID(), ref) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("turn id %q is ambiguous", ref)
		}
		match = turn
	}
	if match == nil {
		return nil, fmt.Errorf("no turn %q in conversation %s", ref, conv.ID())
	}
	return match, nil
}

func messagesOfTurn(messages []internal.Message, turnID string) []internal.Message {
	var out []internal.Message
	for _, msg := range messages {
		if msg.TurnID == turnID {
			out = append(out, msg)
		}
	}
	return out
}

// messagesSince keeps messages stamped at or after t
func messagesSince(messages []internal.Message, t time.Time) []internal.Message {
	filtered := make([]internal.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Timestamp == "" {
			continue
		}
		if msgTime, err := time.Parse(time.RFC3339, msg.Timestamp); err == nil && !msgTime.Before(t) {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}

func displaySessionHeader(out io.Writer, session *internal.Session) {
	if session == nil {
		return
	}
	title := session.Metadata.Title
	if title == "" {
		title = session.ID
	}
	_, _ = fmt.Fprintln(out, sessionHeaderStyle.Render(fmt.Sprintf("💬 %s", title)))

	var metaParts []string
	if session.Metadata.CreatedAt != "" {
		metaParts = append(metaParts, fmt.Sprintf("Created: %s", session.Metadata.CreatedAt))
	}
	metaParts = append(metaParts, fmt.Sprintf("Messages: %d", len(session.Messages)))
	metaParts = append(metaParts, fmt.Sprintf("Turns: %d", session.Metadata.TurnCount))
	if n := session.Metadata.IncompleteTurns; n > 0 {
		metaParts = append(metaParts, fmt.Sprintf("Unfinished: %d", n))
	}

	_, _ = fmt.Fprintln(out, sessionMetaStyle.Render(strings.Join(metaParts, " • ")))
	_, _ = fmt.Fprintln(out)
}

func displayMessage(out io.Writer, index int, msg internal.Message, total int) {
	var actorStyle lipgloss.Style
	var actorLabel string

	switch msg.Actor {
	case "user":
		actorStyle = userMessageStyle
		actorLabel = "👤 User"
	case "assistant":
		actorStyle = assistantMessageStyle
		actorLabel = "🤖 Agent"
	case "thinking":
		actorStyle = thinkingStyle
		actorLabel = "💭 Thinking"
	case "tool":
		actorStyle = toolStyle
		actorLabel = "🔧 Tool"
	case "table":
		actorStyle = tableHeaderStyle
		actorLabel = "📊 Table"
	case "chart":
		actorStyle = tableHeaderStyle
		actorLabel = "📈 Chart"
	case "error":
		actorStyle = errorStyle
		actorLabel = "❌ Error"
	default:
		actorStyle = statusStyle
		actorLabel = "· " + msg.Actor
	}

	header := actorStyle.Render(actorLabel) + " " + timestampStyle.Render(fmt.Sprintf("[%d/%d]", index, total))
	if msg.Actor == "user" && msg.TurnID != "" {
		header += " " + timestampStyle.Render("#"+shortID(msg.TurnID))
	}
	if msg.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339, msg.Timestamp); err == nil {
			header += " " + timestampStyle.Render(t.Format("15:04:05"))
		} else {
			header += " " + timestampStyle.Render(msg.Timestamp)
		}
	}
	_, _ = fmt.Fprintln(out, header)

	if msg.Actor == "table" {
		if td, ok := internal.ParseTable(msg.Data); ok {
			_, _ = fmt.Fprintln(out, renderTable(td))
			_, _ = fmt.Fprintln(out)
			return
		}
	}

	content := strings.TrimSpace(msg.Content)
	if msg.Actor == "chart" && content != "" {
		_, _ = fmt.Fprintln(out, messageContentStyle.Render(truncateLine(content, 200)))
		_, _ = fmt.Fprintln(out)
		return
	}
	if content != "" {
		_, _ = fmt.Fprintln(out, messageContentStyle.Render(wrapText(content, 80)))
	} else {
		_, _ = fmt.Fprintln(out, messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty message)"))
	}
	_, _ = fmt.Fprintln(out)
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Limit number of messages to show")
	showCmd.Flags().StringVar(&since, "since", "", "Show messages since timestamp (ISO8601)")
	showCmd.Flags().StringVar(&showTurn, "turn", "", "Show only the messages of one turn (id or unique prefix)")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
