package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelsArePrefixed(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)

	l.Info("hello")
	l.Warn("careful")
	l.Errorf("broken %d", 7)

	out := buf.String()
	for _, want := range []string{"[COOKIE-INFO] ", "hello", "[COOKIE-WARN] ", "careful", "[COOKIE-ERROR] ", "broken 7"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got %q", want, out)
		}
	}
}

func TestEventFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)

	l.Event("CLICK", "session-1", "+1 cookie")

	if !strings.Contains(buf.String(), "[EVENT:CLICK] Actor:session-1 | +1 cookie") {
		t.Errorf("unexpected event line: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "logger_test.go") {
		t.Errorf("expected caller file in output, got %q", buf.String())
	}
}
