package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iksnae/cortex-session/internal"
	"github.com/iksnae/cortex-session/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubTransport struct {
	body io.Reader
	err  error
	got  *internal.AgentRequest
}

func (s *stubTransport) Open(_ context.Context, req *internal.AgentRequest) (io.ReadCloser, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(s.body), nil
}

func newTestServer(tr internal.Transport, removeSQL bool) *Server {
	return NewServer(Options{
		Transport:   tr,
		RemoveSQL:   removeSQL,
		CORSOrigins: []string{"http://localhost:3000"},
	})
}

func runRequest(s *Server, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/agent/run", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, body string) []internal.Record {
	t.Helper()
	var records []internal.Record
	err := internal.DecodeStream(context.Background(), strings.NewReader(body), func(rec internal.Record) error {
		records = append(records, rec)
		return nil
	})
	require.NoError(t, err)
	return records
}

const runBody = `{"thread_id":7,"messages":[{"role":"user","content":[{"type":"text","text":"Top regions?"}]}]}`

func TestRoot(t *testing.T) {
	s := newTestServer(&stubTransport{}, false)

	tests := []struct {
		path string
		want string
	}{
		{"/", `{"message":"Cortex Agent API","status":"running"}`},
		{"/health", `{"status":"healthy","version":"1.0.0"}`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}

func TestRunAgent_StreamsRecords(t *testing.T) {
	tr := &stubTransport{body: strings.NewReader(testutil.AgentStream)}
	rec := runRequest(newTestServer(tr, false), runBody)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", rec.Header().Get("Connection"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")

	require.NotNil(t, tr.got)
	require.NotNil(t, tr.got.ThreadID)
	assert.Equal(t, int64(7), *tr.got.ThreadID)
	require.Len(t, tr.got.Messages, 1)
	assert.Equal(t, "Top regions?", tr.got.Messages[0].Content[0].Text)

	want := decodeBody(t, testutil.AgentStream)
	got := decodeBody(t, rec.Body.String())
	assert.Equal(t, want, got)
	assert.Contains(t, rec.Body.String(), "SELECT region")
}

func TestRunAgent_RemovesSQL(t *testing.T) {
	tr := &stubTransport{body: strings.NewReader(testutil.AgentStream)}
	rec := runRequest(newTestServer(tr, true), runBody)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "SELECT region")

	records := decodeBody(t, rec.Body.String())
	require.Len(t, records, len(decodeBody(t, testutil.AgentStream)))
	for _, r := range records {
		if r.Event == internal.KindToolResult {
			assert.Contains(t, string(testutil.JSONMarshal(t, r.Data)), "Revenue grouped by region")
		}
	}
}

func TestRunAgent_UpstreamStatus(t *testing.T) {
	tr := &stubTransport{err: &internal.TransportError{StatusCode: http.StatusUnauthorized, Body: "bad token"}}
	rec := runRequest(newTestServer(tr, false), runBody)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"Cortex API error: bad token"}`, rec.Body.String())
}

func TestRunAgent_RequestFailure(t *testing.T) {
	tr := &stubTransport{err: errors.New("dial tcp: connection refused")}
	rec := runRequest(newTestServer(tr, false), runBody)

	require.Equal(t, http.StatusOK, rec.Code)
	records := decodeBody(t, rec.Body.String())
	require.Len(t, records, 1)
	assert.Equal(t, internal.KindError, records[0].Event)
	assert.Equal(t, map[string]any{"error": "dial tcp: connection refused"}, records[0].Data)
}

func TestRunAgent_MidStreamFailure(t *testing.T) {
	body := io.MultiReader(
		strings.NewReader("event: response.text.delta\ndata: {\"text\":\"Partial\"}\n\n"),
		&failingReader{err: errors.New("connection reset by peer")},
	)
	rec := runRequest(newTestServer(&stubTransport{body: body}, false), runBody)

	records := decodeBody(t, rec.Body.String())
	require.Len(t, records, 2)
	assert.Equal(t, internal.KindTextDelta, records[0].Event)
	assert.Equal(t, internal.KindError, records[1].Event)
	assert.Contains(t, records[1].Data.(map[string]any)["error"], "connection reset")
}

func TestRunAgent_InvalidBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "nope"},
		{"missing messages", `{"thread_id":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &stubTransport{body: strings.NewReader("")}
			rec := runRequest(newTestServer(tr, false), tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Nil(t, tr.got)
		})
	}
}

func TestRunAgent_ThroughHTTPTransport(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer pat", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, testutil.ErrorStream)
	}))
	defer upstream.Close()

	s := newTestServer(internal.NewHTTPTransport(upstream.URL, "pat", 0), false)
	rec := runRequest(s, runBody)

	records := decodeBody(t, rec.Body.String())
	require.Len(t, records, 2)
	assert.Equal(t, internal.KindError, records[1].Event)
}

func TestRunAgent_PassesContentBlocksUpstream(t *testing.T) {
	body := `{"messages":[` +
		`{"role":"user","content":[{"type":"text","text":"Top regions?"}]},` +
		`{"role":"user","content":[{"type":"tool_results","tool_results":{"tool_use_id":"x","name":"analyst","content":[{"type":"json","json":{"sql":"SELECT 1"}}]}}]}]}`

	var got []byte
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "event: done\ndata: [DONE]\n\n")
	}))
	defer upstream.Close()

	rec := runRequest(newTestServer(internal.NewHTTPTransport(upstream.URL, "pat", 0), false), body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, body, string(got))
}

func TestCORS(t *testing.T) {
	s := newTestServer(&stubTransport{}, false)

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/agent/run", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "content-type")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, http.MethodPost, rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Contains(t, strings.ToLower(rec.Header().Get("Access-Control-Allow-Headers")), "content-type")
	})

	t.Run("simple request from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("no origins configured", func(t *testing.T) {
		closed := NewServer(Options{Transport: &stubTransport{}})
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		closed.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://evil.example")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

type failingReader struct{ err error }

func (f *failingReader) Read([]byte) (int, error) { return 0, f.err }
