package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

type textID string

func (t textID) String() string { return string(t) }

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(42), "UNKNOWN"},
		{Level(-1), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("Level.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"DEBUG", DebugLevel},
		{"trace", DebugLevel},
		{" info ", InfoLevel},
		{"Warning", WarnLevel},
		{"ERROR", ErrorLevel},
		{"", InfoLevel},
		{"invalid", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDomainFields(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		key   string
		value any
	}{
		{"NodeID", NodeID(textID("ns=2;s=Room:1")), "node_id", "ns=2;s=Room:1"},
		{"Target", Target(textID("i=85")), "target_id", "i=85"},
		{"ReferenceType", ReferenceType(textID("i=47")), "reference_type", "i=47"},
		{"Namespace", Namespace(3), "namespace", uint16(3)},
		{"Element", Element("ObjectType"), "element", "ObjectType"},
		{"SymbolicName", SymbolicName("RoomType"), "symbolic_name", "RoomType"},
		{"Duration", Duration("timeout", 5*time.Second), "timeout", "5s"},
		{"Error", Error(errors.New("boom")), "error", "boom"},
		{"ErrorNil", Error(nil), "error", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.field.Key != tt.key || tt.field.Value != tt.value {
				t.Errorf("got %+v, want {%s %v}", tt.field, tt.key, tt.value)
			}
		})
	}
}

func TestJSONLoggerOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)
	logger.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	logger.Debug("hidden")
	logger.Info("model loaded", Count(12), Path("building.xml"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d: %q", len(lines), buf.String())
	}

	var entry LogEntry
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Failed to parse log line: %v", err)
	}
	if entry.Time != "2024-01-02T03:04:05Z" {
		t.Errorf("Unexpected time %q", entry.Time)
	}
	if entry.Level != "INFO" || entry.Message != "model loaded" {
		t.Errorf("Unexpected entry %+v", entry)
	}
	if entry.Fields["count"] != float64(12) || entry.Fields["path"] != "building.xml" {
		t.Errorf("Unexpected fields %+v", entry.Fields)
	}
}

func TestJSONLoggerWithSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	parent := NewJSONLogger(&buf, WarnLevel)
	child := parent.With(Component("browse"))

	child.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("Expected info to be filtered, got %q", buf.String())
	}

	parent.SetLevel(DebugLevel)
	if child.GetLevel() != DebugLevel {
		t.Errorf("Child should observe parent level change")
	}

	child.Debug("browse node", NodeID(textID("i=84")))
	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log line: %v", err)
	}
	if entry.Fields["component"] != "browse" || entry.Fields["node_id"] != "i=84" {
		t.Errorf("Unexpected fields %+v", entry.Fields)
	}
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Error("ignored", Error(errors.New("x")))
	if logger.With(Component("x")) == nil {
		t.Error("With should return a logger")
	}
	if logger.GetLevel() != InfoLevel {
		t.Error("NopLogger level should be info")
	}
}

func TestCaptureLogger(t *testing.T) {
	capture := NewCaptureLogger()
	child := capture.With(Component("modelfile"))
	child.Warn("unresolved target", SymbolicName("Sensor_7"))
	capture.Info("done")

	if capture.Count(WarnLevel) != 1 {
		t.Fatalf("Expected 1 warning, got %d", capture.Count(WarnLevel))
	}
	entries := capture.Entries()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Fields["component"] != "modelfile" || entries[0].Fields["symbolic_name"] != "Sensor_7" {
		t.Errorf("Unexpected fields %+v", entries[0].Fields)
	}

	capture.SetLevel(ErrorLevel)
	capture.Warn("filtered")
	if len(capture.Entries()) != 2 {
		t.Error("Entries below the level should be dropped")
	}
}

func TestOrDefault(t *testing.T) {
	nop := NewNopLogger()
	if OrDefault(nop) != nop {
		t.Error("OrDefault should keep a non-nil logger")
	}

	prev := DefaultLogger()
	defer SetDefaultLogger(prev)
	capture := NewCaptureLogger()
	SetDefaultLogger(capture)
	if OrDefault(nil) != Logger(capture) {
		t.Error("OrDefault(nil) should return the default logger")
	}
}

func TestTimedOperation(t *testing.T) {
	capture := NewCaptureLogger()
	op := StartTimer(capture, "freeze", Operation("Freeze"))
	elapsed := op.End(Count(3))
	if elapsed < 0 {
		t.Error("Elapsed should not be negative")
	}
	op.EndError(errors.New("partition violation"))

	entries := capture.Entries()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != DebugLevel || entries[0].Fields["count"] != 3 {
		t.Errorf("Unexpected first entry %+v", entries[0])
	}
	if _, ok := entries[0].Fields["latency"]; !ok {
		t.Error("Expected latency field")
	}
	if entries[1].Level != ErrorLevel || entries[1].Fields["error"] != "partition violation" {
		t.Errorf("Unexpected second entry %+v", entries[1])
	}
}
