package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/cortex-session/internal"
	"github.com/spf13/cobra"
)

var (
	healthcheckVerbose bool
	healthcheckRelay   string
	healthcheckTimeout time.Duration
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check configuration and that the agent endpoint answers",
	Long: `Check the health of cortex-session by verifying:
  • Configuration loading (.env and environment)
  • Agent endpoint and token settings
  • Endpoint reachability (or a relay's /health with --relay)
  • Display settings file
  • Archive accessibility

This command is useful for debugging connectivity issues, especially in CI/CD environments.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return runHealthcheck(ctx, cmd.OutOrStdout())
	},
}

func runHealthcheck(ctx context.Context, out io.Writer) error {
	println := func(a ...any) { _, _ = fmt.Fprintln(out, a...) }
	detail := func(format string, a ...any) {
		if healthcheckVerbose {
			_, _ = fmt.Fprintf(out, "   "+format+"\n", a...)
		}
	}

	println(sectionStyle.Render("🔍 Cortex Session Health Check"))
	println()

	// Step 1: configuration
	println(infoStyle.Render("Step 1: Loading configuration..."))
	cfg, err := loadConfig()
	if err != nil {
		println(failStyle.Render("❌ Failed to load configuration:"), err)
		return fmt.Errorf("health check failed: %w", err)
	}
	println(successStyle.Render("✅ Configuration loaded"))
	detail("Env file: %s", envFile)
	detail("Timeout: %s", cfg.AgentTimeout)
	println()

	// Step 2: endpoint settings; the relay holds its own
	println(infoStyle.Render("Step 2: Checking agent settings..."))
	if healthcheckRelay != "" {
		println(infoStyle.Render("ℹ️  Skipped: the relay at " + healthcheckRelay + " uses its own settings"))
	} else {
		if err := cfg.Validate(); err != nil {
			println(failStyle.Render("❌ " + err.Error()))
			return fmt.Errorf("health check failed: %w", err)
		}
		println(successStyle.Render("✅ Agent endpoint configured"))
		detail("Endpoint: %s", cfg.AgentEndpoint)
		if cfg.PATToken == "" {
			println(warningStyle.Render("⚠️  No PAT token set (SNOWFLAKE_PAT_TOKEN)"))
		}
	}
	println()

	// Step 3: reachability
	reachable := true
	if healthcheckRelay != "" {
		println(infoStyle.Render("Step 3: Probing relay..."))
		if err := probeRelay(ctx, healthcheckRelay, healthcheckTimeout); err != nil {
			println(failStyle.Render("❌ Relay is not healthy:"), err)
			reachable = false
		} else {
			println(successStyle.Render("✅ Relay is healthy"))
		}
	} else {
		println(infoStyle.Render("Step 3: Probing agent endpoint..."))
		status, err := probeEndpoint(ctx, cfg.AgentEndpoint, cfg.PATToken, healthcheckTimeout)
		switch {
		case err != nil:
			println(failStyle.Render("❌ Endpoint unreachable:"), err)
			reachable = false
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			println(warningStyle.Render(fmt.Sprintf("⚠️  Endpoint answered %d: check the PAT token", status)))
		default:
			println(successStyle.Render("✅ Endpoint answered"))
			detail("HTTP status: %d", status)
		}
	}
	println()

	// Step 4: display settings
	println(infoStyle.Render("Step 4: Checking display settings..."))
	display, err := resolveDisplay(cfg)
	if err != nil {
		println(warningStyle.Render("⚠️  Display settings invalid:"), err)
	} else {
		println(successStyle.Render("✅ Display settings valid"))
		detail("Shown: %s", shownKinds(display))
	}
	println()

	// Step 5: archive
	println(infoStyle.Render("Step 5: Checking archive..."))
	conversations := -1
	if archive, err := openArchive(); err != nil {
		println(warningStyle.Render("⚠️  Archive not available:"), err)
	} else {
		summaries, err := archive.ListConversations(ctx)
		_ = archive.Close()
		if err != nil {
			println(warningStyle.Render("⚠️  Archive unreadable:"), err)
		} else {
			conversations = len(summaries)
			println(successStyle.Render(fmt.Sprintf("✅ Archive holds %d conversation(s)", conversations)))
			detail("Path: %s", archivePath)
		}
	}
	println()

	println(sectionStyle.Render("📊 Summary"))
	println()
	if !reachable {
		println(failStyle.Render("❌ Health check failed"))
		return fmt.Errorf("health check failed: agent not reachable")
	}
	println(successStyle.Render("✅ Health check passed!"))
	if conversations >= 0 {
		println(successStyle.Render(fmt.Sprintf("   • Archive: %d conversation(s)", conversations)))
	}
	return nil
}

// probeEndpoint checks that something answers HTTP at endpoint without
// starting an agent run. Any status counts as reachable.
func probeEndpoint(ctx context.Context, endpoint, token string, timeout time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodOptions, endpoint, nil)
	if err != nil {
		return 0, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, nil
}

// probeRelay expects a relay's /health to report healthy
func probeRelay(ctx context.Context, base string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	var body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("unexpected health response: %w", err)
	}
	if body.Status != "healthy" {
		return fmt.Errorf("status %q", body.Status)
	}
	return nil
}

func shownKinds(d internal.DisplayConfig) string {
	var kinds []string
	for _, k := range []struct {
		name string
		on   bool
	}{
		{"text", d.Text}, {"thinking", d.Thinking}, {"tool", d.Tool},
		{"status", d.Status}, {"table", d.Table}, {"chart", d.Chart},
	} {
		if k.on {
			kinds = append(kinds, k.name)
		}
	}
	if len(kinds) == 0 {
		return "(errors only)"
	}
	return strings.Join(kinds, ", ")
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckVerbose, "verbose", "v", false, "Show detailed diagnostic information")
	healthcheckCmd.Flags().StringVar(&healthcheckRelay, "relay", "", "Probe a running relay's /health instead of the agent endpoint")
	healthcheckCmd.Flags().DurationVar(&healthcheckTimeout, "timeout", 10*time.Second, "Probe timeout")
}
