// Package trace carries structured pipeline events to observability sinks.
//
// Events are flat: a name plus an ordered list of scalar key/value fields.
// Nested values are flattened with dotted keys (maps) or stringified when the
// event is built, so every sink can render them without reflection.
package trace

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/MeKo-Tech/adaptocr/internal/common"
)

// Event names emitted by the pipeline.
const (
	EventRunStart       = "run.start"
	EventRunFinish      = "run.finish"
	EventProfile        = "image.profile"
	EventDecision       = "ocr.decision"
	EventDownscale      = "image.downscale"
	EventDownscaleError = "image.downscale.error"
	EventRedactDetect   = "redaction.detect"
	EventRedactGate     = "redaction.gate"
	EventPass           = "ocr.pass"
	EventImageResult    = "image.result"
)

// Field is one flattened key/value pair. Value is always a string, bool,
// int64 or float64.
type Field struct {
	Key   string
	Value any
}

// Event is a single trace record.
type Event struct {
	Name   string
	Time   time.Time
	Fields []Field
}

// NewEvent builds an event from alternating key/value arguments. A trailing
// key without a value is recorded with an empty string.
func NewEvent(name string, kv ...any) Event {
	ev := Event{Name: name, Time: time.Now(), Fields: make([]Field, 0, len(kv)/2)}
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		var val any = ""
		if i+1 < len(kv) {
			val = kv[i+1]
		}
		ev.Fields = appendFlat(ev.Fields, key, val)
	}
	return ev
}

// With returns a copy of ev with extra fields appended.
func (ev Event) With(kv ...any) Event {
	out := ev
	out.Fields = append([]Field(nil), ev.Fields...)
	extra := NewEvent(ev.Name, kv...)
	out.Fields = append(out.Fields, extra.Fields...)
	return out
}

// WithMap returns a copy of ev with the entries of m appended at top level,
// in key order.
func (ev Event) WithMap(m map[string]any) Event {
	out := ev
	out.Fields = append([]Field(nil), ev.Fields...)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out.Fields = appendFlat(out.Fields, k, m[k])
	}
	return out
}

// Get returns the first value stored under key.
func (ev Event) Get(key string) (any, bool) {
	for _, f := range ev.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// String returns the value under key formatted with fmt, or "".
func (ev Event) String(key string) string {
	v, ok := ev.Get(key)
	if !ok {
		return ""
	}
	return fmt.Sprint(v)
}

// Attrs renders the fields as slog attributes.
func (ev Event) Attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(ev.Fields))
	for _, f := range ev.Fields {
		attrs = append(attrs, slog.Any(f.Key, f.Value))
	}
	return attrs
}

func appendFlat(dst []Field, key string, v any) []Field {
	switch val := v.(type) {
	case nil:
		return append(dst, Field{key, ""})
	case string:
		return append(dst, Field{key, val})
	case bool:
		return append(dst, Field{key, val})
	case int:
		return append(dst, Field{key, int64(val)})
	case int32:
		return append(dst, Field{key, int64(val)})
	case int64:
		return append(dst, Field{key, val})
	case uint32:
		return append(dst, Field{key, int64(val)})
	case uint64:
		if val > math.MaxInt64 {
			return append(dst, Field{key, float64(val)})
		}
		return append(dst, Field{key, int64(val)})
	case float32:
		return append(dst, Field{key, finite(float64(val))})
	case float64:
		return append(dst, Field{key, finite(val)})
	case time.Duration:
		return append(dst, Field{key, common.Millis(val)})
	case time.Time:
		return append(dst, Field{key, val.UTC().Format(time.RFC3339Nano)})
	case error:
		return append(dst, Field{key, val.Error()})
	case fmt.Stringer:
		return append(dst, Field{key, val.String()})
	case []string:
		return append(dst, Field{key, strings.Join(val, ",")})
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			dst = appendFlat(dst, key+"."+k, val[k])
		}
		return dst
	}
	return append(dst, Field{key, fmt.Sprintf("%v", v)})
}

// finite maps NaN and infinities to zero so JSON encoding never fails.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Sink consumes events. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(ev Event)
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(Event)   {}
func (Nop) Close() error { return nil }

// Multi fans events out to several sinks in order.
type Multi []Sink

func (m Multi) Emit(ev Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Scoped prefixes every event with fixed fields (run_id, doc_id, frame).
type Scoped struct {
	sink   Sink
	fields []Field
}

// WithFields returns a sink that prepends kv to every event sent to s.
func WithFields(s Sink, kv ...any) *Scoped {
	base := NewEvent("", kv...).Fields
	if inner, ok := s.(*Scoped); ok {
		return &Scoped{sink: inner.sink, fields: append(append([]Field(nil), inner.fields...), base...)}
	}
	return &Scoped{sink: s, fields: base}
}

func (s *Scoped) Emit(ev Event) {
	out := ev
	out.Fields = make([]Field, 0, len(s.fields)+len(ev.Fields))
	out.Fields = append(out.Fields, s.fields...)
	out.Fields = append(out.Fields, ev.Fields...)
	s.sink.Emit(out)
}

// Close is a no-op: the underlying sink belongs to whoever created it.
func (s *Scoped) Close() error { return nil }
