package events

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/TheMichaelB/enpass/internal/config"
)

// LogLevel represents logging severity.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Fields are structured key/value pairs attached to an entry.
type Fields map[string]interface{}

// Logger provides structured logging.
type Logger struct {
	mu        *sync.Mutex
	level     LogLevel
	format    string
	output    io.Writer
	fields    Fields
	color     bool
	timestamp bool
}

// NewLogger creates a logger from config. Output goes to stderr unless a
// file is configured; stdout is reserved for command results.
func NewLogger(cfg *config.LogConfig) (*Logger, error) {
	return NewLoggerWithOutput(cfg, os.Stderr)
}

// NewLoggerWithOutput is NewLogger writing to w when no file is configured.
func NewLoggerWithOutput(cfg *config.LogConfig, w io.Writer) (*Logger, error) {
	output := w
	useColor := cfg.Color && !color.NoColor
	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		output = file
		useColor = false
	}

	return &Logger{
		mu:        &sync.Mutex{},
		level:     ParseLevel(cfg.Level),
		format:    cfg.Format,
		output:    output,
		fields:    make(Fields),
		color:     useColor,
		timestamp: cfg.Timestamp,
	}, nil
}

// NewTestLogger creates a logger for testing.
func NewTestLogger(level LogLevel, format string, output io.Writer) *Logger {
	return &Logger{
		mu:        &sync.Mutex{},
		level:     level,
		format:    format,
		output:    output,
		fields:    make(Fields),
		timestamp: true,
	}
}

// WithField returns a logger with an additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(Fields{key: value})
}

// WithFields returns a logger with additional fields.
func (l *Logger) WithFields(fields Fields) *Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	clone := *l
	clone.fields = merged
	return &clone
}

// WithError adds an error field.
func (l *Logger) WithError(err error) *Logger {
	return l.WithField("error", err.Error())
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string) {
	l.log(DebugLevel, msg, nil)
}

// Info logs at info level.
func (l *Logger) Info(msg string) {
	l.log(InfoLevel, msg, nil)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string) {
	l.log(WarnLevel, msg, nil)
}

// Error logs at error level.
func (l *Logger) Error(msg string) {
	l.log(ErrorLevel, msg, nil)
}

// Report implements Reporter.
func (l *Logger) Report(level LogLevel, msg string, fields Fields) {
	l.log(level, msg, fields)
}

// Enabled reports whether entries at level would be written.
func (l *Logger) Enabled(level LogLevel) bool {
	return level >= l.level
}

func (l *Logger) log(level LogLevel, msg string, extra Fields) {
	if !l.Enabled(level) {
		return
	}

	entry := l.buildEntry(level, msg, extra)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.format == "json" {
		l.writeJSON(entry)
	} else {
		l.writeText(level, entry)
	}
}

func (l *Logger) buildEntry(level LogLevel, msg string, extra Fields) Fields {
	_, file, line, _ := runtime.Caller(3)
	if idx := strings.LastIndex(file, "/"); idx >= 0 {
		file = file[idx+1:]
	}

	entry := Fields{
		"level":  levelString(level),
		"msg":    msg,
		"caller": fmt.Sprintf("%s:%d", file, line),
	}
	if l.timestamp {
		entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)
	}
	for k, v := range l.fields {
		entry[k] = v
	}
	for k, v := range extra {
		entry[k] = v
	}
	return entry
}

func (l *Logger) writeJSON(entry Fields) {
	for k, v := range entry {
		if err, ok := v.(error); ok {
			entry[k] = err.Error()
		}
	}
	data, err := json.Marshal(entry)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"level":"error","msg":"marshal log entry: %s"}`, err))
	}
	_, _ = l.output.Write(append(data, '\n'))
}

// writeText outputs: TIME [LEVEL] message key=value key=value
func (l *Logger) writeText(level LogLevel, entry Fields) {
	var sb strings.Builder

	if ts, ok := entry["time"]; ok {
		fmt.Fprintf(&sb, "%s ", ts)
	}

	tag := "[" + strings.ToUpper(levelString(level)) + "]"
	if l.color {
		tag = levelColor(level).Sprint(tag)
	}
	fmt.Fprintf(&sb, "%s %s", tag, entry["msg"])

	keys := make([]string, 0, len(entry))
	for k := range entry {
		switch k {
		case "time", "level", "msg", "caller":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, entry[k])
	}
	sb.WriteByte('\n')

	_, _ = io.WriteString(l.output, sb.String())
}

// ParseLevel maps a config level name to a LogLevel; unknown names are info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func levelString(l LogLevel) string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "unknown"
	}
}

func levelColor(l LogLevel) *color.Color {
	switch l {
	case DebugLevel:
		return color.New(color.FgCyan)
	case WarnLevel:
		return color.New(color.FgYellow)
	case ErrorLevel:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgGreen)
	}
}

func (l LogLevel) String() string {
	return levelString(l)
}
