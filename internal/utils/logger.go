package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[LogLevel]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// Logger is a leveled logger for the application. Loggers derived with
// WithField share the parent's output.
type Logger struct {
	out    *log.Logger
	mu     *sync.Mutex
	level  LogLevel
	json   bool
	fields map[string]interface{}
}

// NewLogger creates a new logger writing to stdout
func NewLogger(level, format string) *Logger {
	return NewLoggerWithOutput(os.Stdout, level, format)
}

// NewLoggerWithOutput creates a new logger writing to w
func NewLoggerWithOutput(w io.Writer, level, format string) *Logger {
	return &Logger{
		out:    log.New(w, "", 0),
		mu:     &sync.Mutex{},
		level:  ParseLogLevel(level),
		json:   strings.EqualFold(format, "json"),
		fields: map[string]interface{}{},
	}
}

// Discard returns a logger that drops everything, for tests
func Discard() *Logger {
	return NewLoggerWithOutput(io.Discard, "error", "text")
}

// ParseLogLevel parses a level name, defaulting to info
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
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

// WithField returns a logger that adds key=value to every entry
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields returns a logger that adds fields to every entry
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	return &Logger{out: l.out, mu: l.mu, level: l.level, json: l.json, fields: merged}
}

// WithError returns a logger carrying err under the "error" field
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.log(LevelDebug, format, v...)
}

// Info logs an informational message
func (l *Logger) Info(format string, v ...interface{}) {
	l.log(LevelInfo, format, v...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	l.log(LevelWarn, format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.log(LevelError, format, v...)
}

// Fatal logs an error message and exits
func (l *Logger) Fatal(format string, v ...interface{}) {
	l.log(LevelError, format, v...)
	os.Exit(1)
}

func (l *Logger) log(level LogLevel, format string, v ...interface{}) {
	if level < l.level {
		return
	}

	msg := fmt.Sprintf(format, v...)
	ts := time.Now().UTC().Format(time.RFC3339)

	var line string
	if l.json {
		entry := map[string]interface{}{
			"timestamp": ts,
			"level":     strings.ToLower(levelNames[level]),
			"message":   msg,
		}
		if len(l.fields) > 0 {
			entry["fields"] = l.fields
		}
		b, _ := json.Marshal(entry)
		line = string(b)
	} else {
		line = fmt.Sprintf("%s %s: %s%s", ts, levelNames[level], msg, l.formatFields())
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Println(line)
}

func (l *Logger) formatFields() string {
	if len(l.fields) == 0 {
		return ""
	}

	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, l.fields[k])
	}
	return b.String()
}
