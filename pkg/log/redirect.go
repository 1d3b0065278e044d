package log

import (
	stdlog "log"
	"strings"
)

// stdLogWriter adapts a Logger to io.Writer for the standard library logger.
type stdLogWriter struct {
	logger Logger
	level  Level
}

func (w *stdLogWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	if msg != "" {
		switch w.level {
		case DebugLevel:
			w.logger.Debug(msg)
		case WarnLevel:
			w.logger.Warn(msg)
		case ErrorLevel:
			w.logger.Error(msg)
		default:
			w.logger.Info(msg)
		}
	}
	return len(p), nil
}

// RedirectStdLog routes the standard library's default logger (used by
// Pebble among others) through the given Logger at info level.
func RedirectStdLog(logger Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(&stdLogWriter{logger: logger, level: InfoLevel})
}

// ToStdLogger returns a *log.Logger that forwards to the given Logger at the
// given level.
func ToStdLogger(logger Logger, level Level) *stdlog.Logger {
	return stdlog.New(&stdLogWriter{logger: logger, level: level}, "", 0)
}
