package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerWithWriter_TextByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&Settings{Output: OutputText, Verbose: true}, &buf)

	logger.Debug("hello", "k", "v")

	output := buf.String()
	if !strings.Contains(output, "hello") {
		t.Errorf("expected log line in output, got: %s", output)
	}
	if strings.HasPrefix(strings.TrimSpace(output), "{") {
		t.Error("expected text-formatted output, got JSON-shaped output")
	}
}

func TestNewLoggerWithWriter_JSONMode(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&Settings{Output: OutputJSON, Verbose: true}, &buf)

	logger.Debug("hello")

	output := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(output, "{") {
		t.Errorf("expected JSON-formatted output, got: %s", output)
	}
}

func TestNewLoggerWithWriter_QuietByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&Settings{Output: OutputText, Verbose: false}, &buf)

	logger.Debug("should be suppressed")
	logger.Info("should also be suppressed")

	if buf.Len() != 0 {
		t.Errorf("expected no output at default (warn) level, got: %s", buf.String())
	}
}

func TestNewLoggerWithWriter_VerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&Settings{Output: OutputText, Verbose: true}, &buf)

	logger.Debug("visible now")

	if !strings.Contains(buf.String(), "visible now") {
		t.Error("expected debug line to appear when Verbose is set")
	}
}

func TestSettingsLogValue(t *testing.T) {
	s := Settings{
		MaxFileSize:  DefaultMaxFileSize,
		MaxResults:   DefaultMaxResults,
		ContextLines: DefaultContextLines,
		Output:       OutputJSON,
		Verbose:      true,
	}

	val := SettingsLogValue(s)
	if val.Kind() != slog.KindGroup {
		t.Errorf("expected group kind, got %v", val.Kind())
	}
}
