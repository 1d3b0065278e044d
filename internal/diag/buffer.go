package diag

import (
	"fmt"
	"sort"
	"strings"
	"time"

	logpkg "github.com/rzbill/tether/pkg/log"
)

// LogCapacity bounds the in-memory log buffer. Under sustained volume the
// oldest entries are silently dropped between drains.
const LogCapacity = 1000

// defaultTarget tags entries emitted without a component field.
const defaultTarget = "tether"

// LogEntry is the host-facing shape of a buffered log event.
type LogEntry struct {
	TimestampMs int64
	Level       string
	Target      string
	Message     string
}

// LogBuffer buffers every log event it observes, bounded FIFO. It plugs
// into the log pipeline as an Output.
type LogBuffer struct {
	ring *ring[LogEntry]
}

// NewLogBuffer returns a buffer with the standard capacity.
func NewLogBuffer() *LogBuffer {
	return &LogBuffer{ring: newRing[LogEntry](LogCapacity)}
}

// Write implements log.Output. Formatting happens before the ring lock is
// taken.
func (b *LogBuffer) Write(entry *logpkg.Entry, _ []byte) error {
	target, message := renderEvent(entry)
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	b.ring.push(LogEntry{
		TimestampMs: ts.UnixMilli(),
		Level:       entry.Level.String(),
		Target:      target,
		Message:     message,
	})
	return nil
}

// Close implements log.Output.
func (b *LogBuffer) Close() error { return nil }

// Drain atomically removes and returns the buffer's contents in arrival
// order. A caller polling on an interval sees every event exactly once,
// absent overflow.
func (b *LogBuffer) Drain() []LogEntry { return b.ring.drain() }

// Len reports the current number of buffered entries.
func (b *LogBuffer) Len() int { return b.ring.len() }

// renderEvent extracts the target (component tag) and a flat message from a
// structured entry. The message is the entry's message followed by the
// remaining fields as name=value pairs; when there is no message, the pairs
// alone form it.
func renderEvent(entry *logpkg.Entry) (target, message string) {
	target = defaultTarget
	var sb strings.Builder
	sb.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		if k == logpkg.ComponentKey {
			if s, ok := entry.Fields[k].(string); ok && s != "" {
				target = s
			}
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s=%v", k, entry.Fields[k])
	}
	return target, sb.String()
}
