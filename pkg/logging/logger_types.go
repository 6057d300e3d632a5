package logging

import (
	"io"
	"strings"
	"sync"
	"time"
)

// Level orders log entries by severity. Entries below a logger's level are dropped.
type Level int

const (
	DebugLevel Level = iota // fixpoint iterations and reduction progress
	InfoLevel               // one entry per pipeline step
	WarnLevel               // cancelled searches and other partial results
	ErrorLevel              // failed runs
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < DebugLevel || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel reads a level name case-insensitively; "warning" is accepted for WarnLevel.
// Anything unrecognised is InfoLevel.
func ParseLevel(s string) Level {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "WARNING" {
		return WarnLevel
	}
	for i, name := range levelNames {
		if name == s {
			return Level(i)
		}
	}
	return InfoLevel
}

// Field is one key of an entry's "fields" object.
type Field struct {
	Key   string
	Value any
}

// Logger writes leveled entries with structured fields. Engines accept one and fall back to
// a NopLogger when it is nil.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With creates a child logger with the given fields pre-set
	With(fields ...Field) Logger
	// Enabled reports whether entries at level would be written
	Enabled(level Level) bool
	SetLevel(level Level)
	GetLevel() Level
}

// JSONLogger writes one JSON object per line. Children made by With share the parent's
// writer and lock.
type JSONLogger struct {
	mu     *sync.Mutex
	out    io.Writer
	min    Level
	preset []Field
}

// LogEntry is the encoded form of one line.
type LogEntry struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// NopLogger discards everything and reports every level as disabled.
type NopLogger struct{}

func (NopLogger) Debug(msg string, fields ...Field) {}
func (NopLogger) Info(msg string, fields ...Field)  {}
func (NopLogger) Warn(msg string, fields ...Field)  {}
func (NopLogger) Error(msg string, fields ...Field) {}
func (n NopLogger) With(fields ...Field) Logger     { return n }
func (NopLogger) Enabled(Level) bool                { return false }
func (NopLogger) SetLevel(level Level)              {}
func (NopLogger) GetLevel() Level                   { return ErrorLevel }

// NewNopLogger returns NopLogger{} as a Logger.
func NewNopLogger() Logger {
	return NopLogger{}
}

// TimedOperation logs a pipeline step or engine run once it ends, adding a latency field.
type TimedOperation struct {
	logger Logger
	msg    string
	fields []Field
	began  time.Time
}
