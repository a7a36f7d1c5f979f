package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// JSONLSink writes one JSON object per line. Every event is serialized fully
// before a single Write call, and files are opened with O_APPEND, so lines from
// concurrent emitters never interleave.
type JSONLSink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	err    error
}

// NewJSONLSink wraps an arbitrary writer. The caller keeps ownership of w.
func NewJSONLSink(w io.Writer) *JSONLSink {
	return &JSONLSink{w: w}
}

// OpenJSONLFile opens path for appending and returns a sink that owns it.
func OpenJSONLFile(path string) (*JSONLSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec // trace path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return &JSONLSink{w: f, closer: f}, nil
}

// Emit serializes ev. Write failures are remembered and reported by Close;
// tracing never fails the pipeline.
func (s *JSONLSink) Emit(ev Event) {
	line := MarshalLine(ev)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(line); err != nil && s.err == nil {
		s.err = err
		slog.Warn("trace write failed", "error", err)
	}
}

// Close closes the owned file, if any, and returns the first write error.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closer != nil {
		if err := s.closer.Close(); err != nil && s.err == nil {
			s.err = err
		}
		s.closer = nil
	}
	return s.err
}

// MarshalLine renders ev as a newline-terminated JSON object with "event" and
// "ts" first, followed by the fields in emission order.
func MarshalLine(ev Event) []byte {
	var buf bytes.Buffer
	buf.WriteString(`{"event":`)
	writeJSON(&buf, ev.Name)
	buf.WriteString(`,"ts":`)
	writeJSON(&buf, ev.Time.UTC().Format(time.RFC3339Nano))
	for _, f := range ev.Fields {
		buf.WriteByte(',')
		writeJSON(&buf, f.Key)
		buf.WriteByte(':')
		writeJSON(&buf, f.Value)
	}
	buf.WriteString("}\n")
	return buf.Bytes()
}

func writeJSON(buf *bytes.Buffer, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(fmt.Sprint(v))
	}
	buf.Write(b)
}
