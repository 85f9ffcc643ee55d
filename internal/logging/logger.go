// Package logging provides structured logging for the suggestion engine.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Logger is the structured logging contract used across the engine.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})

	WithComponent(component string) Logger
}

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

type entry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Component string                 `json:"component,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// StructuredLogger writes JSON or plain-text entries to a single writer.
type StructuredLogger struct {
	level     Level
	useJSON   bool
	component string
	out       io.Writer
}

func New(level Level, useJSON bool) Logger {
	return &StructuredLogger{level: level, useJSON: useJSON, out: os.Stderr}
}

func NewWithWriter(level Level, useJSON bool, out io.Writer) Logger {
	return &StructuredLogger{level: level, useJSON: useJSON, out: out}
}

func (l *StructuredLogger) WithComponent(component string) Logger {
	return &StructuredLogger{level: l.level, useJSON: l.useJSON, component: component, out: l.out}
}

func (l *StructuredLogger) Debug(msg string, fields ...interface{}) {
	if l.level <= LevelDebug {
		l.write("DEBUG", msg, fields...)
	}
}

func (l *StructuredLogger) Info(msg string, fields ...interface{}) {
	if l.level <= LevelInfo {
		l.write("INFO", msg, fields...)
	}
}

func (l *StructuredLogger) Warn(msg string, fields ...interface{}) {
	if l.level <= LevelWarn {
		l.write("WARN", msg, fields...)
	}
}

func (l *StructuredLogger) Error(msg string, fields ...interface{}) {
	if l.level <= LevelError {
		l.write("ERROR", msg, fields...)
	}
}

func (l *StructuredLogger) write(level, msg string, fields ...interface{}) {
	e := entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level,
		Message:   msg,
		Component: l.component,
		Fields:    fieldMap(fields...),
	}

	if l.useJSON {
		if data, err := json.Marshal(e); err == nil {
			fmt.Fprintln(l.out, string(data))
		}
		return
	}

	parts := []string{e.Timestamp, level, msg}
	if e.Component != "" {
		parts = append(parts, "component="+e.Component)
	}
	for k, v := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	fmt.Fprintln(l.out, strings.Join(parts, " "))
}

// fieldMap converts alternating key/value arguments to a map. Odd trailing
// values are kept under "extra" rather than dropped.
func fieldMap(fields ...interface{}) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}
	m := make(map[string]interface{}, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", fields[i])
		}
		m[key] = fields[i+1]
	}
	if len(fields)%2 == 1 {
		m["extra"] = fields[len(fields)-1]
	}
	return m
}
