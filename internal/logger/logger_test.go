package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSetup_ReturnsJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf)

	if l == nil {
		t.Fatal("expected non-nil logger")
	}

	l.Info("test message", slog.String("key", "value"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log output, got error: %v\nraw output: %s", err, buf.String())
	}

	if entry["msg"] != "test message" {
		t.Errorf("msg = %q, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %q, want %q", entry["key"], "value")
	}
}

func TestSetup_DefaultLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf)

	// Infoレベルのロガーはデバッグログを出力しない
	l.Debug("debug message")
	if buf.Len() != 0 {
		t.Errorf("debug log should be suppressed at info level, got: %s", buf.String())
	}

	l.Info("info message")
	if buf.Len() == 0 {
		t.Error("info log should be emitted at info level")
	}
}

func TestSetupWithLevel_Debug(t *testing.T) {
	var buf bytes.Buffer
	l := SetupWithLevel(&buf, slog.LevelDebug)

	l.Debug("debug message")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log output, got error: %v", err)
	}
	if entry["msg"] != "debug message" {
		t.Errorf("msg = %q, want %q", entry["msg"], "debug message")
	}
}

func TestSetup_IncludesTimeField(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf)

	l.Info("test")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log output, got error: %v", err)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("log entry should include a time field")
	}
	if _, ok := entry["level"]; !ok {
		t.Error("log entry should include a level field")
	}
}
