package internal

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStream = "event: response.status\ndata: {\"status\":\"planning\",\"message\":\"Planning the next steps\"}\n\n" +
	"event: response.thinking.delta\ndata: {\"text\":\"Check revenue\"}\n\n" +
	"event: response.thinking\ndata: {\"text\":\"Check revenue by region\"}\n\n" +
	"event: response.text.delta\ndata: {\"text\":\"EMEA \"}\n\n" +
	"event: response.text.delta\ndata: {\"text\":\"leads\"}\n\n" +
	"event: response\ndata: {\"role\":\"assistant\"}\n\n" +
	"event: done\ndata: [DONE]\n\n"

// pipeTransport serves a stream the test writes to; the body is closed when
// the request context ends, like an HTTP response body
type pipeTransport struct {
	w *io.PipeWriter
	r *io.PipeReader
}

func newPipeTransport() *pipeTransport {
	r, w := io.Pipe()
	return &pipeTransport{r: r, w: w}
}

func (p *pipeTransport) Open(ctx context.Context, _ *AgentRequest) (io.ReadCloser, error) {
	go func() {
		<-ctx.Done()
		_ = p.r.CloseWithError(ctx.Err())
	}()
	return p.r, nil
}

type failingTransport struct{ err error }

func (f failingTransport) Open(context.Context, *AgentRequest) (io.ReadCloser, error) {
	return nil, f.err
}

func TestRunTurn(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		// split inside a line to exercise reassembly across writes
		half := len(sampleStream) / 2
		_, _ = io.WriteString(w, sampleStream[:half])
		w.(http.Flusher).Flush()
		_, _ = io.WriteString(w, sampleStream[half:])
	}))
	defer server.Close()

	conv := NewConversation()
	conv.AddUserTurn("Top regions?")
	turn := conv.StartAgentTurn()

	var views []TurnView
	err := RunTurn(context.Background(), NewHTTPTransport(server.URL, "pat", 0), BuildRequest(conv), turn, DefaultDisplayConfig(), func(v TurnView) {
		views = append(views, v)
	})
	require.NoError(t, err)

	assert.True(t, turn.IsComplete())
	assert.NoError(t, turn.Err())
	assert.Len(t, turn.Events(), 7)

	// one update per event plus the completion update
	require.Len(t, views, 8)
	last := views[len(views)-1]
	assert.True(t, last.Complete)
	require.Len(t, last.Items, 1)
	assert.Equal(t, "EMEA leads", last.Items[0].Text().Text)
	assert.Equal(t, "EMEA leads", turn.Text())

	for _, v := range views[:len(views)-1] {
		assert.False(t, v.Complete)
	}
}

func TestRunTurn_TransportFailure(t *testing.T) {
	conv := NewConversation()
	turn := conv.StartAgentTurn()

	var last TurnView
	err := RunTurn(context.Background(), failingTransport{err: &TransportError{StatusCode: 500, Body: "upstream down"}}, &AgentRequest{}, turn, DefaultDisplayConfig(), func(v TurnView) {
		last = v
	})

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.True(t, turn.IsComplete())
	assert.Equal(t, err, turn.Err())
	assert.True(t, last.Complete)
	require.Len(t, last.Items, 1)
	assert.True(t, last.Items[0].IsError())
	assert.Contains(t, last.Items[0].Message(), "upstream down")
}

func TestRunTurn_ReadFailureKeepsPartialItems(t *testing.T) {
	p := newPipeTransport()
	go func() {
		_, _ = io.WriteString(p.w, "event: response.text.delta\ndata: {\"text\":\"partial\"}\n\n")
		_ = p.w.CloseWithError(errors.New("connection reset by peer"))
	}()

	turn := NewConversation().StartAgentTurn()
	err := RunTurn(context.Background(), p, &AgentRequest{}, turn, DefaultDisplayConfig(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	assert.True(t, turn.IsComplete())
	items := turn.View(DefaultDisplayConfig()).Items
	require.Len(t, items, 2)
	assert.Equal(t, "partial", items[0].Text().Text)
	assert.True(t, items[1].IsError())
}

func TestRunTurn_CancellationLeavesTurnIncomplete(t *testing.T) {
	p := newPipeTransport()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_, _ = io.WriteString(p.w, "event: response.text.delta\ndata: {\"text\":\"so far\"}\n\n")
	}()

	turn := NewConversation().StartAgentTurn()
	err := RunTurn(ctx, p, &AgentRequest{}, turn, DefaultDisplayConfig(), func(v TurnView) {
		if len(v.Items) > 0 {
			cancel()
		}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, turn.IsComplete())
	assert.NoError(t, turn.Err())
	items := turn.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "so far", items[0].Text().Text)
}

func TestRunTurn_ReplayCapture(t *testing.T) {
	turn := NewConversation().StartAgentTurn()
	err := RunTurn(context.Background(), ReaderTransport{R: strings.NewReader(sampleStream)}, nil, turn,
		DisplayConfig{Thinking: true, Status: true, Text: true}, nil)
	require.NoError(t, err)

	view := turn.View(DisplayConfig{Thinking: true, Status: true, Text: true})
	assert.Equal(t, []Category{CategoryStatus, CategoryThinking, CategoryText}, categories(view.Items))
	assert.Equal(t, "Check revenue by region", view.Items[1].Thinking())
}
