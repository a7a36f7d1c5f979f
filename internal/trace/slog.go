package trace

import (
	"context"
	"log/slog"
)

// SlogSink forwards events to a structured logger at a fixed level.
type SlogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogSink logs through logger, or slog.Default() when nil.
func NewSlogSink(logger *slog.Logger, level slog.Level) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger, level: level}
}

func (s *SlogSink) Emit(ev Event) {
	s.logger.LogAttrs(context.Background(), s.level, ev.Name, ev.Attrs()...)
}

func (s *SlogSink) Close() error { return nil }
