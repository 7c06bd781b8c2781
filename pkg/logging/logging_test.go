package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewAcceptsKnownLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		l, err := New(level)
		if err != nil {
			t.Errorf("New(%q): %v", level, err)
			continue
		}
		_ = l.Sync()
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("loud")
	if err == nil {
		t.Fatal("expected error for unknown level")
	}
	if !strings.Contains(err.Error(), `invalid log level "loud"`) {
		t.Errorf("error = %v", err)
	}
}

func TestNewHonorsLevel(t *testing.T) {
	l, err := New("warn")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Sync()

	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled at warn level")
	}
}
