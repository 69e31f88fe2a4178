package telemetry

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLogLevel(t *testing.T) {
	cases := []struct {
		env  string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tc := range cases {
		t.Setenv("LOG_LEVEL", tc.env)
		if got := LogLevel(); got != tc.want {
			t.Errorf("LOG_LEVEL=%q: got %v, want %v", tc.env, got, tc.want)
		}
	}
}

func TestLoggerKeyHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	WithRunID(WithAccount(WithTask(logger, "login"), "0xA"), "run-1").Info("hello")

	got := buf.String()
	for _, want := range []string{"task=login", "account=0xA", "run_id=run-1"} {
		if !strings.Contains(got, want) {
			t.Errorf("log line missing %q: %s", want, got)
		}
	}
}

func TestContextLogger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	ctx := WithLogger(t.Context(), logger)
	if got := FromContext(ctx); got != logger {
		t.Error("expected logger from context")
	}
	if got := FromContext(t.Context()); got != slog.Default() {
		t.Error("expected default logger for bare context")
	}
}
