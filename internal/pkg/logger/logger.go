package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "FATAL"
	}
}

func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

const redacted = "[REDACTED]"

// Keys that may carry card or credential material. Values are replaced before encoding.
var redactedKeys = map[string]bool{
	"number":        true,
	"card_number":   true,
	"cvc":           true,
	"authorization": true,
	"access_token":  true,
	"refresh_token": true,
}

type Logger struct {
	mu     *sync.Mutex
	output io.Writer
	level  Level
	fields map[string]interface{}
}

type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	File      string                 `json:"file,omitempty"`
	Line      int                    `json:"line,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func NewLogger() *Logger {
	return New(os.Stdout, LevelInfo)
}

func New(output io.Writer, level Level) *Logger {
	return &Logger{
		mu:     &sync.Mutex{},
		output: output,
		level:  level,
	}
}

// Nop discards everything. Handy for tests and optional collaborators.
func Nop() *Logger {
	return New(io.Discard, LevelFatal+1)
}

func (l *Logger) log(level Level, msg string, fields ...interface{}) {
	if level < l.level {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file = "unknown"
		line = 0
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level.String(),
		Message:   msg,
		File:      file,
		Line:      line,
	}

	fieldMap := make(map[string]interface{}, len(l.fields)+len(fields)/2)
	for k, v := range l.fields {
		fieldMap[k] = v
	}
	if len(fields)%2 == 0 {
		for i := 0; i < len(fields); i += 2 {
			key, ok := fields[i].(string)
			if ok {
				fieldMap[key] = sanitize(key, fields[i+1])
			}
		}
	}
	if len(fieldMap) > 0 {
		entry.Fields = fieldMap
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling log entry: %v\n", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.output, string(jsonData))
}

func sanitize(key string, value interface{}) interface{} {
	if redactedKeys[strings.ToLower(key)] {
		return redacted
	}
	if err, ok := value.(error); ok {
		return err.Error()
	}
	return value
}

func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.log(LevelDebug, msg, fields...)
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	l.log(LevelInfo, msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.log(LevelWarn, msg, fields...)
}

func (l *Logger) Error(msg string, fields ...interface{}) {
	l.log(LevelError, msg, fields...)
}

func (l *Logger) Fatal(msg string, fields ...interface{}) {
	l.log(LevelFatal, msg, fields...)
	os.Exit(1)
}

// With returns a child logger that adds key to every entry.
func (l *Logger) With(key string, value interface{}) *Logger {
	fields := make(map[string]interface{}, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = sanitize(key, value)

	return &Logger{
		mu:     l.mu,
		output: l.output,
		level:  l.level,
		fields: fields,
	}
}

func (l *Logger) WithSession(sessionID string) *Logger {
	return l.With("session_id", sessionID)
}
