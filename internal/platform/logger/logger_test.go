package logger

import (
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := parseLevel(tt.level); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestHandler_LevelFiltering(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf strings.Builder
	log := NewWithWriter(&buf, "warn")

	log.Info("hidden")
	log.Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered at warn level, got: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn message missing from output: %s", out)
	}
	if !strings.Contains(out, "key=value") {
		t.Errorf("attribute missing from output: %s", out)
	}
}

func TestHandler_NoColorDisablesEscapes(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf strings.Builder
	log := NewWithWriter(&buf, "info")
	log.Error("boom")

	if strings.Contains(buf.String(), "\033[") {
		t.Errorf("expected no ANSI escapes with NO_COLOR set, got: %q", buf.String())
	}
}

func TestHandler_WithAttrs(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf strings.Builder
	log := NewWithWriter(&buf, "info").With("app", "demo")
	log.Info("message")

	if !strings.Contains(buf.String(), "app=demo") {
		t.Errorf("handler-level attribute missing: %s", buf.String())
	}
}
