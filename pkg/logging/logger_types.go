package logging

import (
	"io"
	"strings"
	"sync"
	"time"
)

// Level orders log severity. Model loading warns on unresolved names and
// omitted edges; backend faults and startup failures are errors.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

var levelAliases = map[string]Level{
	"trace":   DebugLevel,
	"debug":   DebugLevel,
	"info":    InfoLevel,
	"warn":    WarnLevel,
	"warning": WarnLevel,
	"error":   ErrorLevel,
}

func (l Level) String() string {
	if l < DebugLevel || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel reads a configured level name, case-insensitively. Anything
// unrecognised falls back to InfoLevel.
func ParseLevel(s string) Level {
	if l, ok := levelAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return l
	}
	return InfoLevel
}

// Field is one structured key/value attached to an entry.
type Field struct {
	Key   string
	Value any
}

// Logger is implemented by JSONLogger, CaptureLogger and NopLogger.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With returns a child carrying fields on every entry.
	With(fields ...Field) Logger
	SetLevel(level Level)
	GetLevel() Level
}

// JSONLogger writes one JSON object per line. Children created by With
// share the parent's lock and level.
type JSONLogger struct {
	writer io.Writer
	state  *loggerState
	fields []Field
	now    func() time.Time
}

type loggerState struct {
	mu    sync.Mutex
	level Level
}

// LogEntry is the line format written by JSONLogger.
type LogEntry struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields,omitempty"`
}
