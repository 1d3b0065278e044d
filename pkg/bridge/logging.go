package bridge

import (
	"github.com/rzbill/tether/internal/diag"
	logpkg "github.com/rzbill/tether/pkg/log"
)

// InitLogging attaches the in-memory log buffer to the bridge's logger and
// redirects the standard library logger through it. Safe to call more than
// once; only the first call takes effect.
func (b *Bridge) InitLogging() {
	b.logOnce.Do(func() {
		b.logger.AddOutput(b.buffer)
		logpkg.RedirectStdLog(b.logger)
		b.logger.Info("logging initialized")
	})
}

// DrainLogs returns and removes every buffered log event, oldest first.
// Events logged before InitLogging are not captured.
func (b *Bridge) DrainLogs() []diag.LogEntry {
	return b.buffer.Drain()
}

// RegisterLogCallback forwards every subsequent log event at or above the
// given level to sink, invoked inline on the logging goroutine. Only the
// first registration wins; later ones are ignored with a stderr notice.
func (b *Bridge) RegisterLogCallback(minLevel logpkg.Level, sink diag.Sink) {
	b.forwarder.Register(minLevel, sink)
}

// LastPanic reports the most recently captured panic, if any.
func (b *Bridge) LastPanic() (string, bool) {
	return b.recorder.Last()
}
