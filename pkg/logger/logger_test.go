package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestLoggerWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf).With(String("component", "test"))
	l.Error("signal failed", String("symbol", "600519"), Float64("x", 0.016), Int("window", 20), Error(errors.New("boom")))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "signal failed" || entry["level"] != "error" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if entry["symbol"] != "600519" || entry["component"] != "test" || entry["error"] != "boom" {
		t.Fatalf("missing fields in %v", entry)
	}
	if entry["x"] != 0.016 || entry["window"] != float64(20) {
		t.Fatalf("unexpected numeric fields in %v", entry)
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud", Output: "stdout"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
