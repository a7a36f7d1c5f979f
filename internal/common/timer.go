// Package common provides shared timing helpers for recognition passes.
package common

import (
	"fmt"
	"time"
)

// Timer measures a single named span. Durations come from the monotonic clock
// carried by time.Time, so wall-clock adjustments do not skew pass timings.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
	stopped  bool
}

// NewTimer creates an unnamed timer started now.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// NewNamedTimer creates a timer labelled with name, started now.
func NewNamedTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop freezes the timer. Subsequent calls return the first measurement.
func (t *Timer) Stop() time.Duration {
	if !t.stopped {
		t.duration = time.Since(t.start)
		t.stopped = true
	}
	return t.duration
}

// Elapsed returns the duration so far without stopping the timer.
func (t *Timer) Elapsed() time.Duration {
	if t.stopped {
		return t.duration
	}
	return time.Since(t.start)
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Started returns the wall-clock start time.
func (t *Timer) Started() time.Time {
	return t.start
}

// Name returns the timer name (empty string if unnamed).
func (t *Timer) Name() string {
	return t.name
}

func (t *Timer) String() string {
	if t.name != "" {
		return fmt.Sprintf("%s: %v", t.name, t.duration)
	}
	return fmt.Sprintf("%v", t.duration)
}

// Millis converts d to fractional milliseconds for trace fields.
func Millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

// Timings collects named pass durations in insertion order.
type Timings struct {
	names []string
	byKey map[string]time.Duration
}

// NewTimings returns an empty collection.
func NewTimings() *Timings {
	return &Timings{byKey: make(map[string]time.Duration)}
}

// Record stores the stopped duration of t under its name. Re-recording a name
// overwrites the value but keeps its original position.
func (ts *Timings) Record(t *Timer) time.Duration {
	d := t.Stop()
	ts.Set(t.Name(), d)
	return d
}

// Set stores d under name.
func (ts *Timings) Set(name string, d time.Duration) {
	if _, ok := ts.byKey[name]; !ok {
		ts.names = append(ts.names, name)
	}
	ts.byKey[name] = d
}

// Get returns the duration recorded for name.
func (ts *Timings) Get(name string) (time.Duration, bool) {
	d, ok := ts.byKey[name]
	return d, ok
}

// Names returns recorded names in insertion order.
func (ts *Timings) Names() []string {
	out := make([]string, len(ts.names))
	copy(out, ts.names)
	return out
}

// Map returns a copy of the recorded durations.
func (ts *Timings) Map() map[string]time.Duration {
	out := make(map[string]time.Duration, len(ts.byKey))
	for k, v := range ts.byKey {
		out[k] = v
	}
	return out
}

// Total sums every recorded duration.
func (ts *Timings) Total() time.Duration {
	var total time.Duration
	for _, d := range ts.byKey {
		total += d
	}
	return total
}
