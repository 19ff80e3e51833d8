package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestColoredHandlerPrefixesRunID(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewColoredHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	l.With("run_id", "abc123").Info("job applied", "job_id", "8821", "count", 2)

	out := buf.String()
	if !strings.Contains(out, "[abc123]") {
		t.Errorf("output %q missing run id prefix", out)
	}
	if !strings.Contains(out, `"8821"`) {
		t.Errorf("output %q missing quoted string attr", out)
	}
	if strings.Contains(out, "run_id=") {
		t.Errorf("run_id should not be printed as key=value: %q", out)
	}
}

func TestColoredHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewColoredHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	l.Info("hidden")
	l.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn record missing")
	}
}

func TestFanoutWritesAll(t *testing.T) {
	var a, b bytes.Buffer
	l := slog.New(fanout{
		slog.NewTextHandler(&a, nil),
		slog.NewTextHandler(&b, nil),
	})
	l.Info("hello", "k", "v")

	for name, buf := range map[string]*bytes.Buffer{"a": &a, "b": &b} {
		if !strings.Contains(buf.String(), "msg=hello") {
			t.Errorf("handler %s got %q", name, buf.String())
		}
	}
}
