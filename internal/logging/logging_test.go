package logging_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/shpitdev/call-analyzer/internal/logging"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := logging.ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%s want %s", in, got, want)
		}
	}
}

func TestConfigure(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := logging.Configure(&buf, "WARN")
	logger.Info("hidden")
	logger.Warn("shown", "run", "abc")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "run=abc") {
		t.Fatalf("unexpected output: %q", out)
	}
}
