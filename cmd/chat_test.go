package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/iksnae/cortex-session/internal"
	"github.com/iksnae/cortex-session/testutil"
)

// agentServer answers every run with stream and records request bodies
type agentServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []internal.AgentRequest
}

func newAgentServer(t *testing.T, status int, stream string) *agentServer {
	t.Helper()
	s := &agentServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req internal.AgentRequest
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()

		if status != http.StatusOK {
			http.Error(w, `{"message":"bad token"}`, status)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, stream)
	}))
	t.Cleanup(s.Close)
	return s
}

func newTestChat(url string) (*chatSession, *bytes.Buffer) {
	var buf bytes.Buffer
	return &chatSession{
		conv:     internal.NewConversation(),
		tr:       internal.NewHTTPTransport(url, "pat", 0),
		display:  internal.DefaultDisplayConfig(),
		renderer: newItemRenderer(&buf),
	}, &buf
}

func TestChatSession_Ask(t *testing.T) {
	server := newAgentServer(t, http.StatusOK, testutil.AgentStream)
	chat, out := newTestChat(server.URL)

	if err := chat.Ask(context.Background(), "Revenue by region?"); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	for _, want := range []string{"Agent", "EMEA leads", "REGION", "AMER", "1 citation(s)"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output should contain %q:\n%s", want, out.String())
		}
	}
	if strings.Contains(out.String(), "The user wants") {
		t.Errorf("thinking is hidden by default:\n%s", out.String())
	}

	if err := chat.Ask(context.Background(), "And last year?"); err != nil {
		t.Fatalf("second Ask() error = %v", err)
	}

	server.mu.Lock()
	defer server.mu.Unlock()
	if len(server.requests) != 2 {
		t.Fatalf("server saw %d requests, want 2", len(server.requests))
	}
	history := server.requests[1].Messages
	roles := make([]string, len(history))
	for i, m := range history {
		roles[i] = m.Role
	}
	if strings.Join(roles, ",") != "user,assistant,user" {
		t.Errorf("second request history roles = %v", roles)
	}
	if history[1].Content[0].Text != "EMEA leads with 42%." {
		t.Errorf("assistant history text = %q", history[1].Content[0].Text)
	}
}

func TestChatSession_UpstreamError(t *testing.T) {
	server := newAgentServer(t, http.StatusUnauthorized, "")
	chat, out := newTestChat(server.URL)

	err := chat.Ask(context.Background(), "hello")
	if err == nil {
		t.Fatal("Ask() should fail on 401")
	}
	if !strings.Contains(out.String(), "bad token") {
		t.Errorf("error item should carry the response body:\n%s", out.String())
	}
}

func TestChatSession_Record(t *testing.T) {
	server := newAgentServer(t, http.StatusOK, testutil.AgentStream)
	chat, _ := newTestChat(server.URL)

	archive, err := internal.OpenArchive(filepath.Join(testutil.CreateTempDir(t), "chat.db"))
	if err != nil {
		t.Fatalf("OpenArchive() error = %v", err)
	}
	defer func() { _ = archive.Close() }()
	chat.archive = archive

	if err := chat.RunMessages(context.Background(), []string{"Revenue by region?"}); err != nil {
		t.Fatalf("RunMessages() error = %v", err)
	}

	loaded, err := archive.LoadConversation(context.Background(), chat.conv.ID())
	if err != nil {
		t.Fatalf("LoadConversation() error = %v", err)
	}
	turns := loaded.Turns()
	if len(turns) != 2 {
		t.Fatalf("archived %d turns, want 2", len(turns))
	}
	if got := len(turns[1].Events()); got != 14 {
		t.Errorf("archived %d events, want 14", got)
	}
}

func TestChatSession_RunInteractive(t *testing.T) {
	server := newAgentServer(t, http.StatusOK, testutil.ErrorStream)
	chat, out := newTestChat(server.URL)

	in := strings.NewReader("\nFirst question\n/exit\nnever sent\n")
	var prompt bytes.Buffer
	if err := chat.RunInteractive(context.Background(), in, &prompt); err != nil {
		t.Fatalf("RunInteractive() error = %v", err)
	}

	server.mu.Lock()
	n := len(server.requests)
	server.mu.Unlock()
	if n != 1 {
		t.Errorf("server saw %d requests, want 1", n)
	}
	for _, want := range []string{"Partial", "Agent run failed"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output should contain %q:\n%s", want, out.String())
		}
	}
	if !strings.Contains(prompt.String(), "›") {
		t.Errorf("prompt not written: %q", prompt.String())
	}
}

func TestChatCommand_RequiresEndpoint(t *testing.T) {
	t.Setenv("SNOWFLAKE_AGENT_API_ENDPOINT", "")
	_, err := executeCommand(t, "chat", "--env-file", noEnvFile(t), "-m", "hi")
	if err == nil || !strings.Contains(err.Error(), "endpoint") {
		t.Errorf("chat error = %v, want missing endpoint", err)
	}
}

func TestChatCommand_Message(t *testing.T) {
	server := newAgentServer(t, http.StatusOK, testutil.AgentStream)
	path := filepath.Join(testutil.CreateTempDir(t), "chat.db")

	out, err := executeCommand(t, "chat", "--env-file", noEnvFile(t),
		"--endpoint", server.URL, "--token", "pat", "--record", "--archive", path,
		"-m", "Revenue by region?")
	if err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if !strings.Contains(out, "EMEA leads") {
		t.Errorf("chat output:\n%s", out)
	}

	archive, err := internal.OpenArchiveReadOnly(path)
	if err != nil {
		t.Fatalf("OpenArchiveReadOnly() error = %v", err)
	}
	defer func() { _ = archive.Close() }()
	summaries, err := archive.ListConversations(context.Background())
	if err != nil || len(summaries) != 1 {
		t.Errorf("ListConversations() = %v, %v", summaries, err)
	}
}
