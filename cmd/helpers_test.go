package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/cortex-session/internal"
	"github.com/iksnae/cortex-session/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// executeCommand runs the root command with args against fresh flag values
// and returns what it wrote to stdout
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(""))

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

// resetFlags restores every flag of c and its subcommands to its default,
// since flag values outlive a single Execute
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// seedArchive records one question and the captured agent answer into a
// fresh archive and returns its path and the conversation
func seedArchive(t *testing.T) (string, *internal.Conversation) {
	t.Helper()
	path := filepath.Join(testutil.CreateTempDir(t), "sessions.db")

	archive, err := internal.OpenArchive(path)
	if err != nil {
		t.Fatalf("OpenArchive() error = %v", err)
	}
	defer func() { _ = archive.Close() }()

	conv := internal.NewConversation()
	conv.AddUserTurn("Revenue by region?")
	turn := conv.StartAgentTurn()
	tr := internal.ReaderTransport{R: strings.NewReader(testutil.AgentStream)}
	if err := internal.RunTurn(context.Background(), tr, nil, turn, internal.DefaultDisplayConfig(), nil); err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if err := archive.SaveConversation(context.Background(), conv); err != nil {
		t.Fatalf("SaveConversation() error = %v", err)
	}
	return path, conv
}

// noEnvFile points --env-file at a path that does not exist
func noEnvFile(t *testing.T) string {
	return filepath.Join(testutil.CreateTempDir(t), "missing.env")
}
