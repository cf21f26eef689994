package logging

import "sync"

// CapturedEntry is one entry recorded by a CaptureLogger.
type CapturedEntry struct {
	Level   Level
	Message string
	Fields  map[string]any
}

// CaptureLogger records entries in memory. Tests use it to assert that a
// recoverable problem was reported instead of silently ignored.
type CaptureLogger struct {
	sink   *captureSink
	fields []Field
}

type captureSink struct {
	mu      sync.Mutex
	level   Level
	entries []CapturedEntry
}

// NewCaptureLogger creates a CaptureLogger that records every level.
func NewCaptureLogger() *CaptureLogger {
	return &CaptureLogger{sink: &captureSink{level: DebugLevel}}
}

func (c *CaptureLogger) record(level Level, msg string, fields []Field) {
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	if level < c.sink.level {
		return
	}
	m := make(map[string]any, len(c.fields)+len(fields))
	for _, f := range c.fields {
		m[f.Key] = f.Value
	}
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	c.sink.entries = append(c.sink.entries, CapturedEntry{Level: level, Message: msg, Fields: m})
}

func (c *CaptureLogger) Debug(msg string, fields ...Field) { c.record(DebugLevel, msg, fields) }
func (c *CaptureLogger) Info(msg string, fields ...Field)  { c.record(InfoLevel, msg, fields) }
func (c *CaptureLogger) Warn(msg string, fields ...Field)  { c.record(WarnLevel, msg, fields) }
func (c *CaptureLogger) Error(msg string, fields ...Field) { c.record(ErrorLevel, msg, fields) }

// With returns a child that records into the same sink.
func (c *CaptureLogger) With(fields ...Field) Logger {
	merged := make([]Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &CaptureLogger{sink: c.sink, fields: merged}
}

func (c *CaptureLogger) SetLevel(level Level) {
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	c.sink.level = level
}

func (c *CaptureLogger) GetLevel() Level {
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	return c.sink.level
}

// Entries returns a snapshot of everything recorded so far.
func (c *CaptureLogger) Entries() []CapturedEntry {
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	out := make([]CapturedEntry, len(c.sink.entries))
	copy(out, c.sink.entries)
	return out
}

// Count returns how many entries were recorded at the given level.
func (c *CaptureLogger) Count(level Level) int {
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	n := 0
	for _, e := range c.sink.entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(msg string, fields ...Field) {}
func (NopLogger) Info(msg string, fields ...Field)  {}
func (NopLogger) Warn(msg string, fields ...Field)  {}
func (NopLogger) Error(msg string, fields ...Field) {}
func (n NopLogger) With(fields ...Field) Logger     { return n }
func (NopLogger) SetLevel(level Level)              {}
func (NopLogger) GetLevel() Level                   { return InfoLevel }

func NewNopLogger() Logger {
	return NopLogger{}
}
