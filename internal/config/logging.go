package config

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger builds the package-level logger for the ns CLI: JSON-formatted
// when Output is OutputJSON (so log lines never interleave with JSON result
// output on the same stream), text-formatted otherwise. Level is Debug when
// Verbose, Warn otherwise — ordinary search/index runs stay silent on
// stderr except for required summary/error lines, so no stray INFO log
// races the broken-pipe exit path (T-OUT1).
func NewLogger(s *Settings) *slog.Logger {
	return NewLoggerWithWriter(s, os.Stderr)
}

// NewLoggerWithWriter is NewLogger with an explicit sink, used by tests.
func NewLoggerWithWriter(s *Settings, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if s.Verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if s.Output == OutputJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// SettingsLogValue returns a slog.Value describing the resolved adapter
// settings, for a single structured debug log line at startup.
func SettingsLogValue(s Settings) slog.Value {
	return slog.GroupValue(
		slog.Int64("max_file_size", s.MaxFileSize),
		slog.Int("max_results", s.MaxResults),
		slog.Int("context_lines", s.ContextLines),
		slog.String("output", s.Output),
		slog.Bool("verbose", s.Verbose),
	)
}
