package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/cortex-session/internal"
	"github.com/spf13/cobra"
)

var (
	chatEndpoint string
	chatToken    string
	chatRecord   bool
	chatMessages []string
)

var promptStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("39")).
	Bold(true)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the agent",
	Long: `Start a conversation with the Cortex Agent.

Each answer is rendered item by item while it streams: reasoning, tool calls,
status updates, text, tables and charts, filtered by the display settings
(--show/--hide or DISPLAY_CONFIG). Press Ctrl-C to abandon a running answer,
type /exit to leave.

Examples:
  cortex-session chat                                   # Interactive chat
  cortex-session chat --record                          # Archive every turn
  cortex-session chat -m "Top regions by revenue?"      # One question, then exit
  cortex-session chat --show thinking,tool --hide chart`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if chatEndpoint != "" {
			cfg.AgentEndpoint = chatEndpoint
		}
		if chatToken != "" {
			cfg.PATToken = chatToken
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		display, err := resolveDisplay(cfg)
		if err != nil {
			return err
		}

		session := &chatSession{
			conv:     internal.NewConversation(),
			tr:       cfg.Transport(),
			display:  display,
			renderer: newItemRenderer(cmd.OutOrStdout()),
		}
		if chatRecord {
			archive, err := internal.OpenArchive(archivePath)
			if err != nil {
				return err
			}
			defer func() { _ = archive.Close() }()
			session.archive = archive
			internal.PrintInfo(fmt.Sprintf("Recording conversation %s to %s", session.conv.ID(), archivePath))
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if len(chatMessages) > 0 {
			return session.RunMessages(ctx, chatMessages)
		}
		return session.RunInteractive(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// chatSession drives one conversation: each question becomes a user turn
// followed by a streamed agent turn
type chatSession struct {
	conv     *internal.Conversation
	tr       internal.Transport
	display  internal.DisplayConfig
	renderer *itemRenderer
	archive  *internal.Archive
}

// Ask sends text with the conversation history and renders the answer.
// Interrupting the process abandons the running answer only.
func (s *chatSession) Ask(ctx context.Context, text string) error {
	s.conv.AddUserTurn(text)
	turn := s.conv.StartAgentTurn()
	req := internal.BuildRequest(s.conv)

	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	err := internal.RunTurn(turnCtx, s.tr, req, turn, s.display, s.renderer.Update)
	stop()

	if !turn.IsComplete() {
		view := turn.View(s.display)
		view.Settled = len(view.Items)
		s.renderer.Update(view)
		_, _ = fmt.Fprintln(s.renderer.w, statusStyle.Render("(interrupted)"))
	}
	_, _ = fmt.Fprintln(s.renderer.w)

	s.save()
	return err
}

// save archives the conversation when recording; failures are only logged
// so the chat can go on
func (s *chatSession) save() {
	if s.archive == nil {
		return
	}
	if err := s.archive.SaveConversation(context.Background(), s.conv); err != nil {
		internal.LogWarn("failed to archive conversation: %v", err)
	}
}

// RunMessages asks each message in turn and stops at the first failure
func (s *chatSession) RunMessages(ctx context.Context, messages []string) error {
	for _, msg := range messages {
		renderUserTurn(s.renderer.w, msg, time.Now())
		if err := s.Ask(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// RunInteractive reads questions line by line until EOF or /exit
func (s *chatSession) RunInteractive(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		_, _ = fmt.Fprint(out, promptStyle.Render("› "))
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		}

		err := s.Ask(ctx, line)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			if ctx.Err() != nil {
				return ctx.Err()
			}
		default:
			// already shown as an error item
			internal.LogDebug("turn failed: %v", err)
		}
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatEndpoint, "endpoint", "", "Agent run endpoint (overrides SNOWFLAKE_AGENT_API_ENDPOINT)")
	chatCmd.Flags().StringVar(&chatToken, "token", "", "Personal access token (overrides SNOWFLAKE_PAT_TOKEN)")
	chatCmd.Flags().BoolVar(&chatRecord, "record", false, "Archive the conversation to --archive")
	chatCmd.Flags().StringArrayVarP(&chatMessages, "message", "m", nil, "Ask this question and exit (repeatable)")
}
