package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	New("production", &buf).Info("order resolved", "order_id", "o1")
	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Fatalf("expected JSON line, got %q", buf.String())
	}
}

func TestNew_LocalWritesTextAtDebug(t *testing.T) {
	var buf bytes.Buffer
	l := Component(New("local", &buf), "board")
	l.Debug("pass started", "seq", 1)
	out := buf.String()
	if !strings.Contains(out, "level=DEBUG") || !strings.Contains(out, "component=board") {
		t.Fatalf("unexpected text output %q", out)
	}
}
