package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Logger is a deliberately small, framework-agnostic logging interface.
// Keep implementations in this package so any component can swap in its own.
type Logger interface {
	// Debug logs a debug-level message.
	Debug(msg string, fields ...Field)

	// Info logs an informational message.
	Info(msg string, fields ...Field)

	// Warn logs a warning.
	Warn(msg string, fields ...Field)

	// Error logs an error.
	Error(msg string, fields ...Field)

	// With returns a child logger with persistent fields.
	With(fields ...Field) Logger
}

// Field is a simple key/value pair for structured logging fields.
type Field struct {
	Key   string
	Value interface{}
}

// JSONLogger is a tiny, structured logger. It prints JSON lines to stderr
// so report output on stdout stays machine-parseable.
type JSONLogger struct {
	component string
	out       io.Writer
}

// New creates a new JSONLogger. component is optional and will be included
// as a persistent field on With().
func New(component string) *JSONLogger {
	return &JSONLogger{component: component, out: os.Stderr}
}

// NewWithWriter creates a JSONLogger writing to w. Used in tests.
func NewWithWriter(component string, w io.Writer) *JSONLogger {
	return &JSONLogger{component: component, out: w}
}

func (l *JSONLogger) log(level string, msg string, fields ...Field) {
	type outEntry struct {
		Level     string         `json:"level"`
		Msg       string         `json:"msg"`
		Component string         `json:"component,omitempty"`
		Time      string         `json:"time"`
		Fields    map[string]any `json:"fields,omitempty"`
	}
	m := make(map[string]any)
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	entry := outEntry{
		Level:     level,
		Msg:       msg,
		Component: l.component,
		Time:      time.Now().UTC().Format(time.RFC3339),
		Fields:    m,
	}
	enc, err := json.Marshal(entry)
	if err != nil {
		// Fallback simple formatting if JSON marshal fails
		fmt.Fprintf(l.out, "%s %s %v\n", level, msg, m)
		return
	}
	fmt.Fprintln(l.out, string(enc))
}

func (l *JSONLogger) Debug(msg string, fields ...Field) {
	l.log("debug", msg, fields...)
}

func (l *JSONLogger) Info(msg string, fields ...Field) {
	l.log("info", msg, fields...)
}

func (l *JSONLogger) Warn(msg string, fields ...Field) {
	l.log("warn", msg, fields...)
}

func (l *JSONLogger) Error(msg string, fields ...Field) {
	l.log("error", msg, fields...)
}

func (l *JSONLogger) With(fields ...Field) Logger {
	child := &JSONLogger{component: l.component, out: l.out}
	// If fields include a component key, prefer that as the component name
	for _, f := range fields {
		if f.Key == "component" {
			if str, ok := f.Value.(string); ok {
				child.component = str
			}
		}
	}
	return child
}
