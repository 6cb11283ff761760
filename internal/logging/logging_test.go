package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":    slog.LevelDebug,
		"INFO":     slog.LevelInfo,
		"warning":  slog.LevelWarn,
		"error":    slog.LevelError,
		"critical": LevelCritical,
		"bogus":    slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCriticalLevelName(t *testing.T) {
	var buf bytes.Buffer
	logger := New("error", &buf)

	Critical(logger, "disk full", "file", "quote.json")
	logger.Info("dropped")

	out := buf.String()
	if !strings.Contains(out, "level=CRITICAL") {
		t.Errorf("expected CRITICAL level in %q", out)
	}
	if strings.Contains(out, "dropped") {
		t.Errorf("info line should be filtered at error level: %q", out)
	}
}
