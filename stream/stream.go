// Package stream frames pipeline events as newline-delimited JSON, one
// event per line, for incremental delivery over HTTP and other byte
// transports.
package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/giridharan-1129/LLM-Evaluation-app/pipeline"
)

// Writer serializes events to an io.Writer as NDJSON. If the underlying
// writer is an http.Flusher, every event is flushed immediately so
// clients observe progress as it happens.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter wraps w for NDJSON event output.
func NewWriter(w io.Writer) *Writer {
	writer := &Writer{w: w}
	if flusher, ok := w.(http.Flusher); ok {
		writer.flusher = flusher
	}
	return writer
}

// Write emits one event as a single JSON line.
func (w *Writer) Write(evt *pipeline.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.w.Write(data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}

// WriteAll drains the event channel to the underlying writer, returning
// the first write error encountered.
func (w *Writer) WriteAll(events <-chan *pipeline.Event) error {
	for evt := range events {
		if err := w.Write(evt); err != nil {
			return err
		}
	}
	return nil
}

// Reader decodes NDJSON events from an io.Reader. Blank and
// whitespace-only lines are skipped, and leading or trailing whitespace
// around a message is tolerated.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader wraps r for NDJSON event input.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Reader{scanner: scanner}
}

// Read returns the next event, or io.EOF when the stream ends.
func (r *Reader) Read() (*pipeline.Event, error) {
	for r.scanner.Scan() {
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var evt pipeline.Event
		if err := json.Unmarshal(line, &evt); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		return &evt, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// ReadAll consumes the stream to completion.
func (r *Reader) ReadAll() ([]*pipeline.Event, error) {
	var events []*pipeline.Event
	for {
		evt, err := r.Read()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, evt)
	}
}
