package diag

import (
	"fmt"
	"io"
	"os"
	"sync"

	logpkg "github.com/rzbill/tether/pkg/log"
)

// Sink is the narrow capability a host implements to receive log events
// live. It is invoked synchronously on the emitting goroutine; the event is
// already rendered, so implementations should return quickly.
type Sink interface {
	OnLogEvent(level, target, message string)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(level, target, message string)

func (f SinkFunc) OnLogEvent(level, target, message string) { f(level, target, message) }

// Forwarder forwards log events at or above a minimum severity to a single
// host-supplied sink. The slot is set at most once per process: later
// registrations are noted to stderr and otherwise ignored. A sink that
// panics is recovered and its fault discarded; forwarding failures are
// invisible to the rest of the system.
type Forwarder struct {
	mu     sync.Mutex
	sink   Sink
	min    logpkg.Level
	stderr io.Writer
}

// NewForwarder returns an empty forwarder. Events are discarded until a
// sink is registered.
func NewForwarder() *Forwarder {
	return &Forwarder{stderr: os.Stderr}
}

// Register stores the sink along with its minimum severity. The first
// registration wins; subsequent calls do not replace it and do not report
// an error to the caller.
func (f *Forwarder) Register(min logpkg.Level, s Sink) {
	if s == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sink != nil {
		if f.stderr != nil {
			fmt.Fprintln(f.stderr, "tether: log callback already registered, ignoring")
		}
		return
	}
	f.sink = s
	f.min = min
}

// Registered reports whether a sink has been set.
func (f *Forwarder) Registered() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sink != nil
}

// Write implements log.Output. The sink is invoked outside the slot lock.
func (f *Forwarder) Write(entry *logpkg.Entry, _ []byte) error {
	f.mu.Lock()
	sink, min := f.sink, f.min
	f.mu.Unlock()
	if sink == nil || entry.Level < min {
		return nil
	}

	target, message := renderEvent(entry)
	invokeSink(sink, entry.Level.String(), target, message)
	return nil
}

// Close implements log.Output.
func (f *Forwarder) Close() error { return nil }

// invokeSink isolates the host callback: a panic on the host side must not
// propagate into the core.
func invokeSink(sink Sink, level, target, message string) {
	defer func() { _ = recover() }()
	sink.OnLogEvent(level, target, message)
}
