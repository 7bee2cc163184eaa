package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/iksnae/cortex-session/internal"
	"github.com/spf13/cobra"
)

var (
	replayFile   string
	replayDelay  time.Duration
	replayRecord bool
)

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay [conversation-id]",
	Short: "Re-render an archived conversation or a saved event stream",
	Long: `Rebuild a transcript from raw events.

With a conversation id, the archived events of every agent turn are
segmented again and rendered with the current display settings. With
--file, a saved text/event-stream capture is decoded as one agent turn.

Examples:
  cortex-session replay 0b7c...                      # Archived conversation
  cortex-session replay 0b7c... --delay 50ms         # Play events back paced
  cortex-session replay --file run.sse --show all    # Saved capture, every item`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayFile == "" && len(args) == 0 {
			return fmt.Errorf("provide a conversation id or --file")
		}
		if replayFile != "" && len(args) > 0 {
			return fmt.Errorf("use either a conversation id or --file, not both")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		display, err := resolveDisplay(cfg)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		r := newItemRenderer(cmd.OutOrStdout())

		if replayFile != "" {
			return replayCapture(ctx, r, replayFile, display)
		}

		archive, err := openArchive()
		if err != nil {
			return err
		}
		defer func() { _ = archive.Close() }()

		id, err := resolveConversationID(ctx, archive, args[0])
		if err != nil {
			return err
		}
		conv, err := archive.LoadConversation(ctx, id)
		if err != nil {
			return err
		}
		return replayConversation(ctx, r, conv, display, replayDelay)
	},
}

// replayCapture decodes a saved event stream into a fresh agent turn
func replayCapture(ctx context.Context, r *itemRenderer, path string, display internal.DisplayConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer func() { _ = f.Close() }()

	var src io.Reader = f
	if replayDelay > 0 {
		src = &pacedReader{r: f, delay: replayDelay}
	}

	conv := internal.NewConversation()
	turn := conv.StartAgentTurn()
	if err := internal.RunTurn(ctx, internal.ReaderTransport{R: src}, nil, turn, display, r.Update); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(r.w)
	internal.LogInfo("replayed %d event(s) from %s", len(turn.Events()), path)

	if replayRecord {
		archive, err := internal.OpenArchive(archivePath)
		if err != nil {
			return err
		}
		defer func() { _ = archive.Close() }()
		if err := archive.SaveConversation(ctx, conv); err != nil {
			return err
		}
		internal.PrintSuccess(fmt.Sprintf("Saved as conversation %s", conv.ID()))
	}
	return nil
}

// replayConversation renders every turn. With a delay, agent turn events are
// fed through a fresh turn one at a time so items appear as they settle.
func replayConversation(ctx context.Context, r *itemRenderer, conv *internal.Conversation, display internal.DisplayConfig, delay time.Duration) error {
	for _, turn := range conv.Turns() {
		if delay <= 0 || turn.Role() == internal.RoleUser {
			r.RenderTurn(turn, display)
			continue
		}

		live := internal.NewConversation().StartAgentTurn()
		seq := internal.NewSequencer(live)
		for _, ev := range turn.Events() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			if _, err := seq.Append(internal.Record{Event: ev.Kind, Data: ev.Data}); err != nil {
				return err
			}
			r.Update(live.View(display))
		}
		if turn.IsComplete() {
			live.Complete()
		}
		r.RenderTurn(live, display)
	}
	return nil
}

// pacedReader hands out one line per read, sleeping before each
type pacedReader struct {
	r     io.Reader
	delay time.Duration
	buf   []byte
	eof   bool
}

func (p *pacedReader) Read(b []byte) (int, error) {
	for !p.eof && bytes.IndexByte(p.buf, '\n') < 0 {
		chunk := make([]byte, 4096)
		n, err := p.r.Read(chunk)
		p.buf = append(p.buf, chunk[:n]...)
		if err == io.EOF {
			p.eof = true
		} else if err != nil {
			return 0, err
		}
	}
	if len(p.buf) == 0 {
		return 0, io.EOF
	}

	end := bytes.IndexByte(p.buf, '\n') + 1
	if end == 0 {
		end = len(p.buf)
	}
	if end > len(b) {
		end = len(b)
	}
	time.Sleep(p.delay)
	n := copy(b, p.buf[:end])
	p.buf = p.buf[n:]
	return n, nil
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVar(&replayFile, "file", "", "Replay a saved text/event-stream capture")
	replayCmd.Flags().DurationVar(&replayDelay, "delay", 0, "Pause between events to watch items settle")
	replayCmd.Flags().BoolVar(&replayRecord, "record", false, "Archive a replayed capture as a new conversation")
}
