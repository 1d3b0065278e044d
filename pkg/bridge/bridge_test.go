package bridge

import (
	"context"
	"errors"
	"io"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rzbill/tether/internal/config"
	"github.com/rzbill/tether/internal/diag"
	"github.com/rzbill/tether/internal/engine"
	pebblestore "github.com/rzbill/tether/internal/storage/pebble"
	logpkg "github.com/rzbill/tether/pkg/log"
)

func newTestBridge(t *testing.T) *Bridge {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.ReadyTimeout = 5 * time.Second
	b := New(cfg)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

// stalledEndpoint returns an address that accepts connections and reads
// from them but never answers the handshake.
func stalledEndpoint(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) { _, _ = io.Copy(io.Discard, c) }(conn)
		}
	}()
	return l.Addr().String()
}

// refusedEndpoint returns an address nothing is listening on.
func refusedEndpoint(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func TestInitNodeDurableIdempotent(t *testing.T) {
	b := newTestBridge(t)
	ctx := context.Background()

	if err := b.InitNode(ctx, ""); err != nil {
		t.Fatalf("init: %v", err)
	}
	if got := b.State(); got != StateReady {
		t.Fatalf("state after init: %v", got)
	}
	first, err := b.Node()
	if err != nil {
		t.Fatalf("node: %v", err)
	}

	// second call is a no-op, same node
	if err := b.InitNode(ctx, ""); err != nil {
		t.Fatalf("reinit: %v", err)
	}
	second, err := b.Node()
	if err != nil {
		t.Fatalf("node after reinit: %v", err)
	}
	if first != second {
		t.Fatalf("reinit replaced the node")
	}

	if _, ok := first.System().Root(); !ok {
		t.Fatalf("durable node has no root after init")
	}
}

func TestInitNodeConcurrentCallersJoin(t *testing.T) {
	b := newTestBridge(t)
	ctx := context.Background()

	const callers = 16
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = b.InitNode(ctx, "")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if got := b.State(); got != StateReady {
		t.Fatalf("state: %v", got)
	}
}

func TestInitNodeFailureIsSticky(t *testing.T) {
	b := newTestBridge(t)
	ctx := context.Background()
	endpoint := refusedEndpoint(t)

	err := b.InitNode(ctx, endpoint)
	if err == nil {
		t.Fatalf("expected connection failure")
	}
	var typed *Error
	if !errors.As(err, &typed) || typed.Kind != KindConnection {
		t.Fatalf("kind: %v", err)
	}
	if got := b.State(); got != StateFailed {
		t.Fatalf("state: %v", got)
	}

	// later calls report the original failure, even with a good target
	again := b.InitNode(ctx, "")
	if !errors.Is(again, err) && again.Error() != err.Error() {
		t.Fatalf("sticky failure not reported: %v", again)
	}
	if got := b.State(); got != StateFailed {
		t.Fatalf("state after retry: %v", got)
	}
}

func TestInitNodeStalledHandshakeTimesOut(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.ReadyTimeout = 200 * time.Millisecond
	b := New(cfg)
	t.Cleanup(func() { _ = b.Close() })

	err := b.InitNode(context.Background(), stalledEndpoint(t))
	if err == nil {
		t.Fatalf("expected timeout")
	}
	var typed *Error
	if !errors.As(err, &typed) || typed.Kind != KindTimeout {
		t.Fatalf("kind: %v", err)
	}
	if got := b.State(); got != StateFailed {
		t.Fatalf("state: %v", got)
	}
}

func TestTimedOutBringUpReleasesStorage(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.ReadyTimeout = 200 * time.Millisecond
	b := New(cfg)
	t.Cleanup(func() { _ = b.Close() })

	if err := b.InitNode(context.Background(), stalledEndpoint(t)); err == nil {
		t.Fatalf("expected timeout")
	}

	// the abandoned attempt must release its storage lock even if it only
	// winds down after the caller was told about the timeout
	storeDir := filepath.Join(cfg.DataDir, "store")
	deadline := time.Now().Add(2 * time.Second)
	for {
		s, err := engine.OpenStorage(storeDir, pebblestore.FsyncModeNever)
		if err == nil {
			_ = s.Close()
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("storage still locked: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestJoinerCancellationIsNotATimeout(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.ReadyTimeout = 2 * time.Second
	b := New(cfg)
	t.Cleanup(func() { _ = b.Close() })
	endpoint := stalledEndpoint(t)

	winner := make(chan error, 1)
	go func() { winner <- b.InitNode(context.Background(), endpoint) }()

	deadline := time.Now().Add(time.Second)
	for b.State() != StateInitializing {
		if time.Now().After(deadline) {
			t.Fatalf("bring-up never claimed the slot")
		}
		time.Sleep(time.Millisecond)
	}

	cctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := b.InitNode(cctx, endpoint)
	var typed *Error
	if !errors.As(err, &typed) || typed.Kind != KindInternal {
		t.Fatalf("kind: %v", err)
	}

	if err := <-winner; err == nil {
		t.Fatalf("stalled bring-up unexpectedly succeeded")
	}
}

func TestContextBeforeInit(t *testing.T) {
	b := newTestBridge(t)

	if _, err := b.Context(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected NotInitialized, got %v", err)
	}
	if _, err := b.Node(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected NotInitialized, got %v", err)
	}
}

func TestContextAfterInit(t *testing.T) {
	b := newTestBridge(t)
	ctx := context.Background()
	if err := b.InitNode(ctx, ""); err != nil {
		t.Fatalf("init: %v", err)
	}

	c, err := b.Context()
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	trx := c.Begin()
	if _, err := trx.Create("rooms", map[string]interface{}{"name": "General"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := trx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	got, err := c.Fetch(ctx, "rooms", "fields.name == 'General'")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("rooms: %d", len(got))
	}
}

func TestDrainLogs(t *testing.T) {
	b := newTestBridge(t)
	b.InitLogging()
	b.InitLogging() // second call is a no-op

	b.Logger().Info("bridge test event")

	entries := b.DrainLogs()
	if len(entries) == 0 {
		t.Fatalf("no buffered entries")
	}
	found := false
	for _, e := range entries {
		if strings.Contains(e.Message, "bridge test event") {
			found = true
		}
		if e.TimestampMs == 0 {
			t.Fatalf("entry missing timestamp: %+v", e)
		}
	}
	if !found {
		t.Fatalf("logged event not buffered: %+v", entries)
	}

	if again := b.DrainLogs(); len(again) != 0 {
		t.Fatalf("drain not exhaustive: %d left", len(again))
	}
}

func TestRegisterLogCallback(t *testing.T) {
	b := newTestBridge(t)

	var mu sync.Mutex
	var got []string
	b.RegisterLogCallback(logpkg.InfoLevel, diag.SinkFunc(func(level, target, message string) {
		mu.Lock()
		got = append(got, level+" "+message)
		mu.Unlock()
	}))
	// second registration is ignored
	b.RegisterLogCallback(logpkg.InfoLevel, diag.SinkFunc(func(level, target, message string) {
		t.Errorf("losing sink invoked: %s", message)
	}))

	b.Logger().Debug("below threshold")
	b.Logger().Warn("forwarded event")

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("forwarded events: %v", got)
	}
	if !strings.Contains(got[0], "forwarded event") {
		t.Fatalf("unexpected event: %q", got[0])
	}
}

func TestGuardCapturesPanic(t *testing.T) {
	b := newTestBridge(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer b.Guard()
		panic("boom at the boundary")
	}()
	<-done

	msg, ok := b.LastPanic()
	if !ok {
		t.Fatalf("no panic recorded")
	}
	if !strings.Contains(msg, "boom at the boundary") {
		t.Fatalf("panic record: %q", msg)
	}
}

func TestInitRuntimeIdempotent(t *testing.T) {
	b := newTestBridge(t)
	for i := 0; i < 3; i++ {
		if err := b.InitRuntime(); err != nil {
			t.Fatalf("init runtime %d: %v", i, err)
		}
	}
}
