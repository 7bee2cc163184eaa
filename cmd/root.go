package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/iksnae/cortex-session/internal"
	"github.com/spf13/cobra"
)

var (
	verbose     bool
	envFile     string
	archivePath string
	showKinds   []string
	hideKinds   []string
	version     string = "dev"
	commit      string = "unknown"
	date        string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cortex-session",
	Short: "Chat with a Cortex Agent and keep readable transcripts",
	Long: `A CLI for Snowflake Cortex Agent conversations.

It streams agent runs, rebuilds the raw event stream into readable items
(answers, reasoning, tool calls, result tables, charts) as they arrive, and
can archive, replay and export the resulting transcripts.

Features:
  • Interactive chat with incremental rendering
  • Opt-in SQLite archive of every turn and raw event
  • Replay of archived conversations or saved SSE captures
  • Export in multiple formats (JSONL, Markdown, YAML, JSON)
  • A streaming relay for browser front-ends

Quick Start:
  cortex-session chat --record             # Chat and archive the conversation
  cortex-session sessions                  # List archived conversations
  cortex-session replay <conversation-id>  # Re-render an archived conversation
  cortex-session export --format md        # Export transcripts as Markdown`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
		internal.SetLogOutput(cmd.ErrOrStderr())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		internal.PrintError(fmt.Sprintf("Error: %v", err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading settings")
	rootCmd.PersistentFlags().StringVar(&archivePath, "archive", "cortex-sessions.db", "Path of the conversation archive database")
	rootCmd.PersistentFlags().StringSliceVar(&showKinds, "show", nil, "Item kinds to show (text, thinking, tool, status, table, chart, all)")
	rootCmd.PersistentFlags().StringSliceVar(&hideKinds, "hide", nil, "Item kinds to hide (text, thinking, tool, status, table, chart, all)")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// loadConfig reads settings from the env file and environment and applies
// the configured log level unless --verbose was given
func loadConfig() (*internal.Config, error) {
	cfg, err := internal.LoadConfig(envFile)
	if err != nil {
		return nil, err
	}
	if !verbose && cfg.LogLevel != "" {
		level, err := internal.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			internal.LogWarn("ignoring LOG_LEVEL: %v", err)
		} else {
			internal.SetLogLevel(level)
		}
	}
	return cfg, nil
}

// resolveDisplay layers the display flags over the configured display
func resolveDisplay(cfg *internal.Config) (internal.DisplayConfig, error) {
	fromFile, err := cfg.DisplayOverrides()
	if err != nil {
		return internal.DefaultDisplayConfig(), err
	}
	fromFlags, err := displayOverrides(showKinds, hideKinds)
	if err != nil {
		return internal.DefaultDisplayConfig(), err
	}
	return fromFile.Merge(fromFlags).Apply(internal.DefaultDisplayConfig()), nil
}

// displayOverrides turns --show/--hide lists into overrides; hide wins when
// a kind appears in both
func displayOverrides(show, hide []string) (internal.DisplayOverrides, error) {
	var o internal.DisplayOverrides
	apply := func(names []string, value bool) error {
		for _, name := range names {
			v := value
			switch strings.ToLower(strings.TrimSpace(name)) {
			case "text":
				o.Text = &v
			case "thinking":
				o.Thinking = &v
			case "tool", "tools":
				o.Tool = &v
			case "status":
				o.Status = &v
			case "table", "tables":
				o.Table = &v
			case "chart", "charts":
				o.Chart = &v
			case "all":
				o = internal.DisplayOverrides{Text: &v, Thinking: &v, Tool: &v, Status: &v, Table: &v, Chart: &v}
			default:
				return fmt.Errorf("unknown item kind %q", name)
			}
		}
		return nil
	}
	if err := apply(show, true); err != nil {
		return o, err
	}
	if err := apply(hide, false); err != nil {
		return o, err
	}
	return o, nil
}

// openArchive opens the archive at --archive for reading, failing with a
// hint when it does not exist yet
func openArchive() (*internal.Archive, error) {
	if _, err := os.Stat(archivePath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no archive at %s (record conversations with 'cortex-session chat --record')", archivePath)
		}
		return nil, err
	}
	return internal.OpenArchiveReadOnly(archivePath)
}
