package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Record is one (event name, data) pair reconstructed from the stream
type Record struct {
	Event string
	Data  any
}

// Decoder reassembles event/data line pairs from arbitrarily chunked bytes.
// A line is only interpreted once its terminating newline has arrived, so
// chunk boundaries may fall anywhere, including inside "event:" itself.
type Decoder struct {
	buf     []byte
	pending string
}

// NewDecoder creates a new Decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends a chunk and returns the records completed by it
func (d *Decoder) Feed(chunk []byte) []Record {
	d.buf = append(d.buf, chunk...)

	var records []Record
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := string(d.buf[:i])
		d.buf = d.buf[i+1:]

		if rec, ok := d.line(line); ok {
			records = append(records, rec)
		}
	}

	// Release the backing array once every complete line is consumed
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return records
}

// Pending returns the number of buffered bytes of the trailing partial line
func (d *Decoder) Pending() int {
	return len(d.buf)
}

func (d *Decoder) line(line string) (Record, bool) {
	switch {
	case strings.HasPrefix(line, "event:"):
		d.pending = strings.TrimSpace(line[len("event:"):])
		return Record{}, false
	case strings.HasPrefix(line, "data:"):
		raw := strings.TrimSpace(line[len("data:"):])
		name := d.pending
		if name == "" {
			name = DefaultEventName
		}
		d.pending = ""
		return Record{Event: name, Data: parseData(raw)}, true
	default:
		// Blank separators, ":" comments, id:/retry: fields
		return Record{}, false
	}
}

// parseData returns the JSON value of raw, or raw itself if it isn't JSON
func parseData(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		LogDebug("data line is not JSON, keeping raw string: %v", &DecodeError{Line: raw, Err: err})
		return raw
	}
	return v
}

// DecodeStream reads r chunk by chunk and calls fn for each record, in order.
// A partial line left when r ends is discarded. Reading stops early when ctx
// is done or fn returns an error.
func DecodeStream(ctx context.Context, r io.Reader, fn func(Record) error) error {
	dec := NewDecoder()
	chunk := make([]byte, 4096)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := r.Read(chunk)
		if n > 0 {
			for _, rec := range dec.Feed(chunk[:n]) {
				if err := fn(rec); err != nil {
					return err
				}
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				if dec.Pending() > 0 {
					LogDebug("discarding %d byte(s) of unterminated line at end of stream", dec.Pending())
				}
				return nil
			}
			// A canceled request surfaces as a read error; report the cause
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("failed to read stream: %w", readErr)
		}
	}
}
