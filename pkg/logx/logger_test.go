package logx

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"info":    logrus.InfoLevel,
		"warn":    logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"bogus":   logrus.InfoLevel,
		"":        logrus.InfoLevel,
	}

	for input, expected := range cases {
		if got := parseLevel(input); got != expected {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, expected)
		}
	}
}

func TestToFields(t *testing.T) {
	fields := toFields([]interface{}{"plant_id", "p1", "score", 0.8})
	if fields["plant_id"] != "p1" {
		t.Errorf("expected plant_id=p1, got %v", fields["plant_id"])
	}
	if fields["score"] != 0.8 {
		t.Errorf("expected score=0.8, got %v", fields["score"])
	}

	// Odd trailing key is dropped rather than panicking
	fields = toFields([]interface{}{"orphan"})
	if len(fields) != 0 {
		t.Errorf("expected empty fields for odd pair count, got %v", fields)
	}
}

func TestNewDoesNotPanic(t *testing.T) {
	logger := New("debug")
	if logger == nil {
		t.Fatal("New returned nil")
	}
	logger.Debug("debug message", "k", "v")
	logger.Info("info message")
	logger.Warn("warn message", "count", 3)
	logger.Error("error message", "err", "boom")
}
