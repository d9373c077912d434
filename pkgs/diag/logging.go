// Package diag is the diagnostic sink: a leveled logger whose output is
// emitted in bounded segments that never split a quoted value.
package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultChunkSize bounds every emitted segment
const DefaultChunkSize = 500

// LogLevel represents different logging levels
type LogLevel int

const (
	LogLevelTrace LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// String returns the string representation of log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelTrace:
		return "TRACE"
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name, case-insensitively, to a LogLevel
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TRACE":
		return LogLevelTrace, nil
	case "DEBUG":
		return LogLevelDebug, nil
	case "INFO", "":
		return LogLevelInfo, nil
	case "WARN", "WARNING":
		return LogLevelWarn, nil
	case "ERROR":
		return LogLevelError, nil
	default:
		return LogLevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// Sink accepts arbitrarily long diagnostic text
type Sink interface {
	Emit(text string)
}

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     LogLevel               `json:"level"`
	Message   string                 `json:"message"`
	Component string                 `json:"component"`
	Error     string                 `json:"error,omitempty"`
	Caller    string                 `json:"caller,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// LogFormatter interface for different log output formats
type LogFormatter interface {
	Format(entry *LogEntry) string
}

// JSONFormatter outputs logs in JSON format
type JSONFormatter struct{}

func (f *JSONFormatter) Format(entry *LogEntry) string {
	data, _ := json.Marshal(entry)
	return string(data)
}

// TextFormatter outputs logs in human-readable text format
type TextFormatter struct {
	ShowCaller    bool
	ShowTimestamp bool
	UseColors     bool
}

func (f *TextFormatter) Format(entry *LogEntry) string {
	var parts []string

	if f.ShowTimestamp {
		parts = append(parts, entry.Timestamp.Format("2006-01-02 15:04:05.000"))
	}

	levelStr := entry.Level.String()
	if f.UseColors {
		levelStr = f.colorizeLevel(entry.Level, levelStr)
	}
	parts = append(parts, fmt.Sprintf("[%s]", levelStr))

	if entry.Component != "" {
		parts = append(parts, fmt.Sprintf("(%s)", entry.Component))
	}

	parts = append(parts, entry.Message)

	if entry.Error != "" {
		parts = append(parts, fmt.Sprintf("error=%s", entry.Error))
	}

	if f.ShowCaller && entry.Caller != "" {
		parts = append(parts, fmt.Sprintf("caller=%s", entry.Caller))
	}

	result := strings.Join(parts, " ")

	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fieldParts := make([]string, 0, len(keys))
		for _, k := range keys {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%v", k, entry.Fields[k]))
		}
		result += " " + strings.Join(fieldParts, " ")
	}

	return result
}

func (f *TextFormatter) colorizeLevel(level LogLevel, text string) string {
	switch level {
	case LogLevelTrace:
		return fmt.Sprintf("\033[37m%s\033[0m", text) // White
	case LogLevelDebug:
		return fmt.Sprintf("\033[36m%s\033[0m", text) // Cyan
	case LogLevelInfo:
		return fmt.Sprintf("\033[32m%s\033[0m", text) // Green
	case LogLevelWarn:
		return fmt.Sprintf("\033[33m%s\033[0m", text) // Yellow
	case LogLevelError:
		return fmt.Sprintf("\033[31m%s\033[0m", text) // Red
	default:
		return text
	}
}

// Logger writes leveled entries and raw emissions to its outputs
type Logger struct {
	mu        *sync.Mutex
	level     *LogLevel // shared with derived loggers
	outputs   []io.Writer
	formatter LogFormatter
	component string
	fields    map[string]interface{}
	chunkSize int
}

// NewLogger creates a logger writing text entries to w at info level
func NewLogger(component string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	level := LogLevelInfo
	return &Logger{
		mu:        &sync.Mutex{},
		level:     &level,
		outputs:   []io.Writer{w},
		formatter: &TextFormatter{},
		component: component,
		fields:    make(map[string]interface{}),
		chunkSize: DefaultChunkSize,
	}
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return NewLogger("discard", io.Discard)
}

// SetLevel sets the minimum log level for l and every logger derived from it
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.level = level
}

// Enabled reports whether entries at level are written
func (l *Logger) Enabled(level LogLevel) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= *l.level
}

// SetFormatter sets the log formatter
func (l *Logger) SetFormatter(formatter LogFormatter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.formatter = formatter
}

// SetChunkSize bounds emitted segments; zero or less disables chunking
func (l *Logger) SetChunkSize(size int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.chunkSize = size
}

// AddOutput adds an additional output writer
func (l *Logger) AddOutput(writer io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outputs = append(l.outputs, writer)
}

// WithField returns a logger sharing outputs, level and lock, with one more field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields returns a logger sharing outputs, level and lock, with more fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	newFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return &Logger{
		mu:        l.mu,
		level:     l.level,
		outputs:   l.outputs,
		formatter: l.formatter,
		component: l.component,
		fields:    newFields,
		chunkSize: l.chunkSize,
	}
}

// Emit writes text verbatim, regardless of level, in bounded segments.
// Logger satisfies Sink through it.
func (l *Logger) Emit(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write(text)
}

func (l *Logger) log(level LogLevel, message string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < *l.level {
		return
	}

	entry := &LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Component: l.component,
		Fields:    l.fields,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if pc, file, line, ok := runtime.Caller(2); ok {
		funcName := runtime.FuncForPC(pc).Name()
		entry.Caller = fmt.Sprintf("%s:%d (%s)", filepath.Base(file), line, filepath.Base(funcName))
	}

	l.write(l.formatter.Format(entry))
}

// write must be called with l.mu held
func (l *Logger) write(text string) {
	for _, segment := range Chunk(text, l.chunkSize) {
		segment = strings.TrimSuffix(segment, "\n")
		for _, output := range l.outputs {
			if _, err := fmt.Fprintln(output, segment); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to write log output: %v\n", err)
			}
		}
	}
}

// Trace logs a trace message
func (l *Logger) Trace(message string) {
	l.log(LogLevelTrace, message, nil)
}

// Tracef logs a formatted trace message
func (l *Logger) Tracef(format string, args ...interface{}) {
	l.log(LogLevelTrace, fmt.Sprintf(format, args...), nil)
}

// Debug logs a debug message
func (l *Logger) Debug(message string) {
	l.log(LogLevelDebug, message, nil)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(LogLevelDebug, fmt.Sprintf(format, args...), nil)
}

// Info logs an info message
func (l *Logger) Info(message string) {
	l.log(LogLevelInfo, message, nil)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(LogLevelInfo, fmt.Sprintf(format, args...), nil)
}

// Warn logs a warning message
func (l *Logger) Warn(message string) {
	l.log(LogLevelWarn, message, nil)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(LogLevelWarn, fmt.Sprintf(format, args...), nil)
}

// Error logs an error message
func (l *Logger) Error(message string) {
	l.log(LogLevelError, message, nil)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(LogLevelError, fmt.Sprintf(format, args...), nil)
}

// ErrorWithErr logs an error message with an error object
func (l *Logger) ErrorWithErr(message string, err error) {
	l.log(LogLevelError, message, err)
}
