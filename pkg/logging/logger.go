package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"time"
)

// LevelEnv names the environment variable read by DefaultLogger.
const LevelEnv = "SKETCH_LOG_LEVEL"

// NewJSONLogger returns a logger writing entries at level or above to w.
func NewJSONLogger(w io.Writer, level Level) *JSONLogger {
	return &JSONLogger{mu: new(sync.Mutex), out: w, min: level}
}

// NewDefaultLogger logs INFO and above to stderr; stdout carries inference results.
func NewDefaultLogger() *JSONLogger {
	return NewJSONLogger(os.Stderr, InfoLevel)
}

func (l *JSONLogger) entry(level Level, msg string, fields []Field) LogEntry {
	e := LogEntry{Time: time.Now().Format(time.RFC3339Nano), Level: level.String(), Message: msg}
	if len(l.preset) == 0 && len(fields) == 0 {
		return e
	}
	e.Fields = make(map[string]any, len(l.preset)+len(fields))
	for _, group := range [][]Field{l.preset, fields} {
		for _, f := range group {
			e.Fields[f.Key] = f.Value
		}
	}
	return e
}

func (l *JSONLogger) write(level Level, msg string, fields []Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.min {
		return
	}
	line, err := json.Marshal(l.entry(level, msg, fields))
	if err != nil {
		fmt.Fprintf(l.out, `{"level":"ERROR","msg":"unencodable log entry","error":%q}`+"\n", err.Error())
		return
	}
	l.out.Write(append(line, '\n'))
}

func (l *JSONLogger) Debug(msg string, fields ...Field) { l.write(DebugLevel, msg, fields) }
func (l *JSONLogger) Info(msg string, fields ...Field)  { l.write(InfoLevel, msg, fields) }
func (l *JSONLogger) Warn(msg string, fields ...Field)  { l.write(WarnLevel, msg, fields) }
func (l *JSONLogger) Error(msg string, fields ...Field) { l.write(ErrorLevel, msg, fields) }

// With returns a child whose entries always carry fields after the parent's own.
func (l *JSONLogger) With(fields ...Field) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	child := *l
	child.preset = append(slices.Clip(l.preset), fields...)
	return &child
}

func (l *JSONLogger) Enabled(level Level) bool { return level >= l.GetLevel() }

func (l *JSONLogger) SetLevel(level Level) {
	l.mu.Lock()
	l.min = level
	l.mu.Unlock()
}

func (l *JSONLogger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.min
}

var (
	defaultLogger Logger
	defaultMu     sync.Mutex
)

// DefaultLogger returns the process-wide logger, created on first use at the level named
// by SKETCH_LOG_LEVEL (or LOG_LEVEL).
func DefaultLogger() Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		level := InfoLevel
		if s := os.Getenv(LevelEnv); s != "" {
			level = ParseLevel(s)
		} else if s := os.Getenv("LOG_LEVEL"); s != "" {
			level = ParseLevel(s)
		}
		defaultLogger = NewJSONLogger(os.Stderr, level)
	}
	return defaultLogger
}

// SetDefaultLogger replaces the process-wide logger
func SetDefaultLogger(logger Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// Debug logs a debug-level message using the default logger
func Debug(msg string, fields ...Field) { DefaultLogger().Debug(msg, fields...) }

// Info logs an info-level message using the default logger
func Info(msg string, fields ...Field) { DefaultLogger().Info(msg, fields...) }

// Warn logs a warning-level message using the default logger
func Warn(msg string, fields ...Field) { DefaultLogger().Warn(msg, fields...) }

// ErrorLog logs an error-level message using the default logger.
// Named ErrorLog to avoid conflict with the Error field constructor.
func ErrorLog(msg string, fields ...Field) { DefaultLogger().Error(msg, fields...) }

// With creates a child of the default logger
func With(fields ...Field) Logger { return DefaultLogger().With(fields...) }

// StartTimer starts a TimedOperation; fields are repeated on the entry written when it ends.
func StartTimer(logger Logger, msg string, fields ...Field) *TimedOperation {
	return &TimedOperation{logger: logger, msg: msg, fields: fields, began: time.Now()}
}

func (t *TimedOperation) Elapsed() time.Duration { return time.Since(t.began) }

// End logs at INFO.
func (t *TimedOperation) End(extra ...Field) { t.logger.Info(t.msg, t.closing(extra...)...) }

// EndDebug logs at DEBUG, for per-iteration operations.
func (t *TimedOperation) EndDebug(extra ...Field) { t.logger.Debug(t.msg, t.closing(extra...)...) }

func (t *TimedOperation) EndError(err error) { t.logger.Error(t.msg, t.closing(Error(err))...) }

func (t *TimedOperation) closing(extra ...Field) []Field {
	return append(slices.Concat(t.fields, extra), Latency(t.Elapsed()))
}
