package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// DefaultAgentTimeout bounds a single agent run, which may execute
// long-running SQL before it finishes streaming
const DefaultAgentTimeout = 300 * time.Second

// AgentRequest is the body of an agent run request
type AgentRequest struct {
	ThreadID        *int64         `json:"thread_id,omitempty"`
	ParentMessageID *int64         `json:"parent_message_id,omitempty"`
	Messages        []AgentMessage `json:"messages"`
	ToolChoice      map[string]any `json:"tool_choice,omitempty"`
}

// AgentMessage is one message of the request history. A message decoded
// from JSON re-encodes to the exact bytes it was decoded from, so content
// blocks other than text (tool results, images) pass through unchanged.
type AgentMessage struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`

	raw json.RawMessage
}

type agentMessageFields AgentMessage

// UnmarshalJSON keeps the raw message. Role and text content are read when
// the message has that shape; anything else is only carried along.
func (m *AgentMessage) UnmarshalJSON(data []byte) error {
	var head struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	*m = AgentMessage{raw: append(json.RawMessage(nil), data...)}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil
	}
	m.Role = head.Role
	if len(head.Content) > 0 {
		if err := json.Unmarshal(head.Content, &m.Content); err != nil {
			m.Content = nil
		}
	}
	return nil
}

// MarshalJSON writes the decoded bytes when there are any
func (m AgentMessage) MarshalJSON() ([]byte, error) {
	if m.raw != nil {
		return m.raw, nil
	}
	return json.Marshal(agentMessageFields(m))
}

// ContentPart is one typed content block of a message
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// BuildRequest turns a conversation into a request history of alternating
// questions and answers. Agent turns contribute their accumulated text. A
// question whose answer failed, was abandoned or produced no text is left
// out together with that answer; the question of an answer still in flight
// is kept.
func BuildRequest(conv *Conversation) *AgentRequest {
	req := &AgentRequest{}
	turns := conv.Turns()

	var pending *AgentMessage
	flush := func() {
		if pending != nil {
			req.Messages = append(req.Messages, *pending)
			pending = nil
		}
	}

	for i, turn := range turns {
		text := turn.Text()
		if turn.Role() == RoleUser {
			if text == "" {
				continue
			}
			flush()
			msg := textMessage("user", text)
			pending = &msg
			continue
		}

		switch {
		case turn.IsComplete() && turn.Err() == nil && text != "":
			flush()
			req.Messages = append(req.Messages, textMessage("assistant", text))
		case i == len(turns)-1 && !turn.IsComplete():
		default:
			if pending != nil {
				LogDebug("leaving unanswered question of turn %s out of the history", turn.ID())
			}
			pending = nil
		}
	}
	flush()
	return req
}

func textMessage(role, text string) AgentMessage {
	return AgentMessage{Role: role, Content: []ContentPart{{Type: "text", Text: text}}}
}

// Transport opens the byte stream of an agent run. Implementations must
// fail before returning a body when the endpoint answers with a non-2xx
// status, carrying the response body as detail.
type Transport interface {
	Open(ctx context.Context, req *AgentRequest) (io.ReadCloser, error)
}

// ErrStreamIdle is returned by a stream body that received nothing for the
// transport's timeout
var ErrStreamIdle = errors.New("agent stream idle")

// HTTPTransport posts run requests to an agent endpoint with a bearer token.
// Timeout bounds the wait for response headers and each read of the stream,
// not the run as a whole.
type HTTPTransport struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
	client   *http.Client
}

// NewHTTPTransport creates an HTTPTransport. A zero timeout selects
// DefaultAgentTimeout.
func NewHTTPTransport(endpoint, token string, timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = DefaultAgentTimeout
	}
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.ResponseHeaderTimeout = timeout
	return &HTTPTransport{
		Endpoint: endpoint,
		Token:    token,
		Timeout:  timeout,
		client:   &http.Client{Transport: base},
	}
}

// Open sends the request and returns the event stream body
func (t *HTTPTransport) Open(ctx context.Context, req *AgentRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if t.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.Token)
	}

	LogDebug("POST %s (%d message(s))", t.Endpoint, len(req.Messages))
	resp, err := t.client.Do(httpReq)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer cancel()
		defer resp.Body.Close()
		detail, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if readErr != nil {
			LogDebug("failed to read error body: %v", readErr)
		}
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: string(detail)}
	}

	return newIdleBody(resp.Body, t.Timeout, cancel), nil
}

// idleBody cancels the request when a single Read blocks for longer than
// timeout. Time the caller spends between reads is not counted.
type idleBody struct {
	io.ReadCloser
	timeout time.Duration
	cancel  context.CancelFunc
	timer   *time.Timer
	idle    atomic.Bool
}

func newIdleBody(rc io.ReadCloser, timeout time.Duration, cancel context.CancelFunc) *idleBody {
	b := &idleBody{ReadCloser: rc, timeout: timeout, cancel: cancel}
	b.timer = time.AfterFunc(timeout, func() {
		b.idle.Store(true)
		cancel()
	})
	b.timer.Stop()
	return b
}

func (b *idleBody) Read(p []byte) (int, error) {
	b.timer.Reset(b.timeout)
	n, err := b.ReadCloser.Read(p)
	b.timer.Stop()
	if err != nil && err != io.EOF && b.idle.Load() {
		return n, fmt.Errorf("%w for %s", ErrStreamIdle, b.timeout)
	}
	return n, err
}

func (b *idleBody) Close() error {
	b.timer.Stop()
	b.cancel()
	return b.ReadCloser.Close()
}

// ReaderTransport replays a captured event stream, such as a saved
// text/event-stream response body
type ReaderTransport struct {
	R io.Reader
}

// Open returns the captured stream; the request is ignored
func (t ReaderTransport) Open(ctx context.Context, _ *AgentRequest) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rc, ok := t.R.(io.ReadCloser); ok {
		return rc, nil
	}
	return io.NopCloser(t.R), nil
}
