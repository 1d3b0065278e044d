package diag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"
)

// PanicCapacity bounds the in-memory panic record list.
const PanicCapacity = 100

// panicFileName is the append-only spill file under the data directory.
const panicFileName = "panic_log.txt"

// Recorder captures panics into a bounded in-memory list, an append-only
// file, and stderr. Every step is best-effort: a Recorder failure must
// never become a secondary failure of the process it is diagnosing.
type Recorder struct {
	ring   *ring[string]
	dir    string
	stderr io.Writer
}

// NewRecorder returns a Recorder spilling to dir/panic_log.txt. An empty
// dir disables the file spill.
func NewRecorder(dir string) *Recorder {
	return &Recorder{
		ring:   newRing[string](PanicCapacity),
		dir:    dir,
		stderr: os.Stderr,
	}
}

// Guard is meant to be deferred at the top of any goroutine or boundary
// entry point that must not crash the process:
//
//	defer recorder.Guard()
//
// It recovers a panic, records it, and discards it.
func (r *Recorder) Guard() {
	if v := recover(); v != nil {
		r.Capture(v, debug.Stack())
	}
}

// Capture records a recovered panic value. stack may be nil, in which case
// the current stack is captured. Returns the formatted record.
func (r *Recorder) Capture(recovered interface{}, stack []byte) string {
	// capture must never itself panic
	defer func() { _ = recover() }()

	if stack == nil {
		stack = debug.Stack()
	}
	msg := panicMessage(recovered)
	loc := panicLocation(stack)
	record := fmt.Sprintf("PANIC at %s: %s\n%s", loc, msg, stack)

	r.ring.push(record)

	if r.stderr != nil {
		fmt.Fprintln(r.stderr, record)
	}
	r.appendToFile(record)
	return record
}

// Last returns the most recently captured record.
func (r *Recorder) Last() (string, bool) { return r.ring.last() }

// Count reports how many records are retained.
func (r *Recorder) Count() int { return r.ring.len() }

// appendToFile spills the record as a timestamped block. Failures are
// swallowed.
func (r *Recorder) appendToFile(record string) {
	if r.dir == "" {
		return
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return
	}
	path := filepath.Join(r.dir, panicFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = fmt.Fprintf(f, "=== %d ===\n%s\n\n", time.Now().Unix(), record)
}

// panicMessage extracts a printable message from a recovered value, falling
// back to a generic placeholder for unrecognized payloads.
func panicMessage(recovered interface{}) string {
	switch v := recovered.(type) {
	case string:
		return v
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	case nil:
		return "unknown panic"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// panicLocation finds the panic site in a debug.Stack dump. In the dump the
// runtime's panic frame appears as "panic(...)" followed by its own location
// line; the frame after that pair is the source site, whose tab-indented
// "file:line +0x.." location follows its function line.
func panicLocation(stack []byte) string {
	lines := strings.Split(string(stack), "\n")
	for i := 0; i < len(lines); i++ {
		fn := strings.TrimSpace(lines[i])
		if strings.HasPrefix(fn, "panic(") || strings.HasPrefix(fn, "runtime.gopanic") {
			if i+3 < len(lines) {
				loc := strings.TrimSpace(lines[i+3])
				if idx := strings.LastIndex(loc, " +0x"); idx > 0 {
					loc = loc[:idx]
				}
				if loc != "" {
					return loc
				}
			}
			break
		}
	}
	return "unknown"
}
