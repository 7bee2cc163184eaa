package internal

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoder_ChunkBoundaryIndependence(t *testing.T) {
	input := "event: x\ndata: {\"a\":1}\n"
	want := []Record{{Event: "x", Data: map[string]any{"a": float64(1)}}}

	whole := NewDecoder().Feed([]byte(input))
	assert.Equal(t, want, whole)

	dec := NewDecoder()
	var split []Record
	for i := 0; i < len(input); i++ {
		split = append(split, dec.Feed([]byte{input[i]})...)
	}
	assert.Equal(t, want, split)
	assert.Zero(t, dec.Pending())
}

func TestDecoder_EverySplitPoint(t *testing.T) {
	input := "event: response.text.delta\ndata: {\"text\":\"hi\"}\n\nevent: response.status\ndata: {\"status\":\"planning\"}\n\n"
	want := NewDecoder().Feed([]byte(input))
	require.Len(t, want, 2)

	for i := 0; i <= len(input); i++ {
		dec := NewDecoder()
		got := append(dec.Feed([]byte(input[:i])), dec.Feed([]byte(input[i:]))...)
		assert.Equal(t, want, got, "split at %d", i)
	}
}

func TestDecoder_MalformedJSONFallback(t *testing.T) {
	records := NewDecoder().Feed([]byte("data: not-json\n"))
	require.Len(t, records, 1)
	assert.Equal(t, DefaultEventName, records[0].Event)
	assert.Equal(t, "not-json", records[0].Data)
}

func TestDecoder_LineHandling(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Record
	}{
		{
			name:  "default event name",
			input: "data: {\"a\":true}\n",
			want:  []Record{{Event: "message", Data: map[string]any{"a": true}}},
		},
		{
			name:  "pending name cleared after data",
			input: "event: status\ndata: 1\ndata: 2\n",
			want: []Record{
				{Event: "status", Data: float64(1)},
				{Event: "message", Data: float64(2)},
			},
		},
		{
			name:  "last event line wins",
			input: "event: a\nevent: b\ndata: \"x\"\n",
			want:  []Record{{Event: "b", Data: "x"}},
		},
		{
			name:  "comments ids and blanks ignored",
			input: ": keep-alive\nid: 7\nretry: 100\n\n",
			want:  nil,
		},
		{
			name:  "trailing partial line discarded",
			input: "data: 1\ndata: 2",
			want:  []Record{{Event: "message", Data: float64(1)}},
		},
		{
			name:  "no space after colon",
			input: "event:done\ndata:[DONE]\n",
			want:  []Record{{Event: "done", Data: "[DONE]"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewDecoder().Feed([]byte(tt.input))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeStream(t *testing.T) {
	input := "event: response.text.delta\ndata: {\"text\":\"a\"}\n\nevent: done\ndata: [DONE]\n\ndata: partial"

	var got []Record
	err := DecodeStream(context.Background(), iotest.OneByteReader(strings.NewReader(input)), func(rec Record) error {
		got = append(got, rec)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, KindTextDelta, got[0].Event)
	assert.Equal(t, KindDone, got[1].Event)
}

func TestDecodeStream_CallbackError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := DecodeStream(context.Background(), strings.NewReader("data: 1\ndata: 2\n"), func(Record) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestDecodeStream_ReadError(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader("data: 1\n"), iotest.ErrReader(boom))

	var got []Record
	err := DecodeStream(context.Background(), r, func(rec Record) error {
		got = append(got, rec)
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, got, 1)
}

func TestDecodeStream_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := DecodeStream(ctx, strings.NewReader("data: 1\n"), func(Record) error {
		t.Fatal("no record expected after cancellation")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
