package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the severity level of a log message.
type Level int

// Log levels
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a textual level ("debug", "info", ...) to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Fields is a map of field names to values.
type Fields map[string]interface{}

// ComponentKey tags log entries with the emitting component.
const ComponentKey = "component"

// Entry represents a single log entry as seen by formatters and outputs.
type Entry struct {
	Level     Level
	Message   string
	Fields    Fields
	Timestamp time.Time
	Caller    string
}

// Logger defines the core logging interface for Tether components.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	// With returns a derived logger carrying additional fields.
	With(fields ...Field) Logger

	// WithComponent tags logs with a component name.
	WithComponent(component string) Logger

	// AddOutput attaches an output to the logger. Safe for concurrent use;
	// the output observes every entry at or above the logger's level.
	AddOutput(out Output)

	// SetLevel sets the minimum log level.
	SetLevel(level Level)

	// GetLevel returns the current minimum log level.
	GetLevel() Level
}

// Formatter renders an entry to bytes.
type Formatter interface {
	Format(entry *Entry) ([]byte, error)
}

// Output receives every entry accepted by the logger, along with its
// formatted representation. Write errors are swallowed by the pipeline;
// an output must never be able to fail a log call.
type Output interface {
	Write(entry *Entry, formatted []byte) error
	Close() error
}

// loggerCore holds the mutable state shared by a logger and all of its
// derived instances.
type loggerCore struct {
	mu        sync.RWMutex
	level     Level
	formatter Formatter
	outputs   []Output
}

func (c *loggerCore) getLevel() Level {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.level
}

func (c *loggerCore) setLevel(l Level) {
	c.mu.Lock()
	c.level = l
	c.mu.Unlock()
}

func (c *loggerCore) addOutput(out Output) {
	if out == nil {
		return
	}
	c.mu.Lock()
	c.outputs = append(c.outputs, out)
	c.mu.Unlock()
}

// dispatch formats the entry once and hands it to every output. It runs on
// the emitting goroutine; outputs do their own locking.
func (c *loggerCore) dispatch(entry *Entry) {
	c.mu.RLock()
	formatter := c.formatter
	outputs := c.outputs
	c.mu.RUnlock()

	formatted, err := formatter.Format(entry)
	if err != nil {
		return
	}
	for _, out := range outputs {
		_ = out.Write(entry, formatted)
	}
}

// BaseLogger implements the Logger interface.
type BaseLogger struct {
	core       *loggerCore
	slogLogger *slog.Logger
}

// LoggerOption configures a logger at construction time.
type LoggerOption func(*loggerCore)

// NewLogger creates a new logger with the given options.
func NewLogger(options ...LoggerOption) Logger {
	core := &loggerCore{
		level:     InfoLevel,
		formatter: &TextFormatter{},
	}
	for _, option := range options {
		option(core)
	}
	if len(core.outputs) == 0 {
		core.outputs = append(core.outputs, NewConsoleOutput())
	}
	return &BaseLogger{
		core:       core,
		slogLogger: slog.New(newBridgeHandler(core)),
	}
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) LoggerOption {
	return func(c *loggerCore) { c.level = level }
}

// WithFormatter sets the log formatter.
func WithFormatter(formatter Formatter) LoggerOption {
	return func(c *loggerCore) {
		if formatter != nil {
			c.formatter = formatter
		}
	}
}

// WithOutput adds an output to the logger.
func WithOutput(output Output) LoggerOption {
	return func(c *loggerCore) {
		if output != nil {
			c.outputs = append(c.outputs, output)
		}
	}
}

func (l *BaseLogger) log(level Level, msg string, fields []Field) {
	l.slogLogger.LogAttrs(context.Background(), toSlogLevel(level), msg, attrsFromFieldSlice(fields)...)
}

func (l *BaseLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *BaseLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *BaseLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *BaseLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

// Fatal logs at fatal severity and exits the process.
func (l *BaseLogger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, fields)
	os.Exit(1)
}

func (l *BaseLogger) Debugf(format string, args ...interface{}) {
	l.log(DebugLevel, fmt.Sprintf(format, args...), nil)
}
func (l *BaseLogger) Infof(format string, args ...interface{}) {
	l.log(InfoLevel, fmt.Sprintf(format, args...), nil)
}
func (l *BaseLogger) Warnf(format string, args ...interface{}) {
	l.log(WarnLevel, fmt.Sprintf(format, args...), nil)
}
func (l *BaseLogger) Errorf(format string, args ...interface{}) {
	l.log(ErrorLevel, fmt.Sprintf(format, args...), nil)
}

// With returns a derived logger sharing the same level, formatter, and
// outputs, with the given fields attached to every entry.
func (l *BaseLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	return &BaseLogger{
		core:       l.core,
		slogLogger: l.slogLogger.With(attrsToAny(attrsFromFieldSlice(fields))...),
	}
}

// WithComponent tags logs with a component name.
func (l *BaseLogger) WithComponent(component string) Logger {
	return l.With(Component(component))
}

// AddOutput attaches an output shared by this logger and all derived loggers.
func (l *BaseLogger) AddOutput(out Output) { l.core.addOutput(out) }

// SetLevel sets the minimum log level.
func (l *BaseLogger) SetLevel(level Level) { l.core.setLevel(level) }

// GetLevel returns the current minimum log level.
func (l *BaseLogger) GetLevel() Level { return l.core.getLevel() }
