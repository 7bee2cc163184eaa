package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iksnae/cortex-session/internal"
	"github.com/iksnae/cortex-session/internal/export"
	"github.com/spf13/cobra"
)

var (
	format     string
	outputDir  string
	sessionID  string
	exportFile string
	dedupe     bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export transcripts to file",
	Long: `Export transcripts to various formats (jsonl, md, yaml, json).

You can export every archived conversation, a single one by ID, or a saved
text/event-stream capture. Only the items allowed by the display settings
(--show/--hide or DISPLAY_CONFIG) are written.
Use 'cortex-session sessions' to see available conversation IDs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
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

		var (
			conversations []*internal.Conversation
			sessions      []*internal.Session
			source        = "archive"
		)
		steps := []internal.ProgressStep{
			{
				Message: "Loading conversations",
				Fn: func() error {
					var loadErr error
					if exportFile != "" {
						source = "capture"
						var conv *internal.Conversation
						conv, loadErr = loadCapture(ctx, exportFile)
						conversations = []*internal.Conversation{conv}
						return loadErr
					}
					conversations, loadErr = loadArchived(ctx, sessionID)
					return loadErr
				},
			},
			{
				Message: "Segmenting and normalizing transcripts",
				Fn: func() error {
					var normErr error
					sessions, normErr = internal.NewNormalizer(display).NormalizeAllConversations(conversations, source)
					if normErr == nil && dedupe {
						before := len(sessions)
						sessions = internal.NewDeduplicator().Deduplicate(sessions)
						if n := before - len(sessions); n > 0 {
							internal.LogInfo("skipped %d duplicate transcript(s)", n)
						}
					}
					return normErr
				},
			},
		}
		if err := internal.ShowProgressWithSteps(ctx, steps); err != nil {
			return err
		}

		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		exported := 0
		err = internal.ShowProgress(ctx, fmt.Sprintf("Exporting %d session(s) to %s", len(sessions), outputDir), func() error {
			for _, session := range sessions {
				path := filepath.Join(outputDir, fmt.Sprintf("session_%s.%s", session.ID, exporter.Extension()))
				if err := writeSession(exporter, session, path); err != nil {
					internal.PrintWarning(err.Error())
					continue
				}
				exported++
			}
			return nil
		})
		if err != nil {
			return err
		}

		internal.PrintSuccess(fmt.Sprintf("Export complete: %d session(s) exported to %s", exported, outputDir))
		return nil
	},
}

// loadArchived loads one conversation by id prefix, or all of them
func loadArchived(ctx context.Context, id string) ([]*internal.Conversation, error) {
	archive, err := openArchive()
	if err != nil {
		return nil, err
	}
	defer func() { _ = archive.Close() }()

	if id == "" {
		return archive.LoadAll(ctx)
	}
	full, err := resolveConversationID(ctx, archive, id)
	if err != nil {
		return nil, err
	}
	conv, err := archive.LoadConversation(ctx, full)
	if err != nil {
		return nil, err
	}
	return []*internal.Conversation{conv}, nil
}

// loadCapture decodes a saved event stream into a one-turn conversation
func loadCapture(ctx context.Context, path string) (*internal.Conversation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}
	defer func() { _ = f.Close() }()

	conv := internal.NewConversation()
	turn := conv.StartAgentTurn()
	if err := internal.RunTurn(ctx, internal.ReaderTransport{R: f}, nil, turn, internal.DefaultDisplayConfig(), nil); err != nil {
		return nil, err
	}
	return conv, nil
}

func writeSession(exporter export.Exporter, session *internal.Session, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	if err := exporter.Export(session, file); err != nil {
		_ = file.Close()
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format ("+strings.Join(export.Formats(), ", ")+")")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().StringVar(&sessionID, "session-id", "", "Export a specific conversation by ID")
	exportCmd.Flags().StringVar(&exportFile, "file", "", "Export a saved text/event-stream capture instead of the archive")
	exportCmd.Flags().BoolVar(&dedupe, "dedupe", false, "Skip conversations whose transcript repeats an earlier one")
}
