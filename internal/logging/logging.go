// Package logging provides a small structured logger that prints JSON lines.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Logger is a deliberately small, framework-agnostic logging interface.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a child logger with persistent fields.
	With(fields ...Field) Logger
}

// Field is a simple key/value pair for structured logging fields.
type Field struct {
	Key   string
	Value any
}

// F is shorthand for Field{Key: key, Value: value}.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Err is shorthand for an "error" field holding err's message.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

// JSONLogger writes one JSON object per line.
type JSONLogger struct {
	component string
	min       Level
	fields    []Field

	mu  *sync.Mutex
	out io.Writer
}

// NewJSONLogger creates a logger writing entries at or above min to out.
func NewJSONLogger(out io.Writer, component string, min Level) *JSONLogger {
	return &JSONLogger{component: component, min: min, out: out, mu: &sync.Mutex{}}
}

// NewStderrLogger logs to stderr so stdout stays free for reports.
// verbose lowers the threshold from warn to debug.
func NewStderrLogger(component string, verbose bool) *JSONLogger {
	min := LevelWarn
	if verbose {
		min = LevelDebug
	}
	return NewJSONLogger(os.Stderr, component, min)
}

func (l *JSONLogger) log(level Level, msg string, fields ...Field) {
	if level < l.min {
		return
	}

	type outEntry struct {
		Level     string         `json:"level"`
		Msg       string         `json:"msg"`
		Component string         `json:"component,omitempty"`
		Time      string         `json:"time"`
		Fields    map[string]any `json:"fields,omitempty"`
	}

	var m map[string]any
	if n := len(l.fields) + len(fields); n > 0 {
		m = make(map[string]any, n)
		for _, f := range l.fields {
			m[f.Key] = f.Value
		}
		for _, f := range fields {
			m[f.Key] = f.Value
		}
	}

	entry := outEntry{
		Level:     level.String(),
		Msg:       msg,
		Component: l.component,
		Time:      time.Now().UTC().Format(time.RFC3339),
		Fields:    m,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	enc, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(l.out, "%s %s %v\n", entry.Level, msg, m)
		return
	}
	fmt.Fprintln(l.out, string(enc))
}

func (l *JSONLogger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, fields...) }
func (l *JSONLogger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, fields...) }
func (l *JSONLogger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, fields...) }
func (l *JSONLogger) Error(msg string, fields ...Field) { l.log(LevelError, msg, fields...) }

// With returns a child logger. A "component" field replaces the component name;
// other fields are attached to every entry.
func (l *JSONLogger) With(fields ...Field) Logger {
	child := &JSONLogger{
		component: l.component,
		min:       l.min,
		fields:    append([]Field(nil), l.fields...),
		mu:        l.mu,
		out:       l.out,
	}
	for _, f := range fields {
		if f.Key == "component" {
			if s, ok := f.Value.(string); ok {
				child.component = s
				continue
			}
		}
		child.fields = append(child.fields, f)
	}
	return child
}

// Nop discards everything.
type Nop struct{}

func (Nop) Debug(string, ...Field)  {}
func (Nop) Info(string, ...Field)   {}
func (Nop) Warn(string, ...Field)   {}
func (Nop) Error(string, ...Field)  {}
func (n Nop) With(...Field) Logger { return n }
