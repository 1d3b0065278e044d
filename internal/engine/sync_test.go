package engine

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

// startSyncServer runs a handshake server on a loopback port and returns
// its address.
func startSyncServer(t *testing.T, node *Node) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := NewServer(node)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Serve(ctx, l) }()
	return l.Addr().String()
}

func TestHandshakeDeliversRoot(t *testing.T) {
	durable := newReadyDurableNode(t)
	addr := startSyncServer(t, durable)

	ephemeral := New(newTestStorage(t))
	client, err := Dial(context.Background(), addr, ephemeral)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ephemeral.System().WaitReady(ctx); err != nil {
		t.Fatalf("wait ready: %v", err)
	}

	gotRoot, ok := ephemeral.System().Root()
	if !ok {
		t.Fatalf("no root after handshake")
	}
	wantRoot, _ := durable.System().Root()
	if gotRoot != wantRoot {
		t.Fatalf("root %q want %q", gotRoot, wantRoot)
	}

	// the adopted root is persisted locally
	persisted, err := ephemeral.Storage().LoadRoot()
	if err != nil {
		t.Fatalf("load root: %v", err)
	}
	if persisted != wantRoot {
		t.Fatalf("persisted root %q", persisted)
	}
}

func TestHandshakeStallTimesOut(t *testing.T) {
	// a listener that accepts but never answers
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	ephemeral := New(newTestStorage(t))
	client, err := Dial(context.Background(), l.Addr().String(), ephemeral)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := ephemeral.System().WaitReady(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v", err)
	}
}

func TestDialRefused(t *testing.T) {
	// bind and immediately close to get a dead port
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	ephemeral := New(newTestStorage(t))
	if _, err := Dial(context.Background(), addr, ephemeral); err == nil {
		t.Fatalf("expected connection error")
	}
}

func TestServerWaitsForOwnRoot(t *testing.T) {
	// durable node with no root yet: the handshake must block until the
	// root exists, then deliver it
	durable := NewDurable(newTestStorage(t))
	addr := startSyncServer(t, durable)

	ephemeral := New(newTestStorage(t))
	client, err := Dial(context.Background(), addr, ephemeral)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	// not ready yet
	shortCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := ephemeral.System().WaitReady(shortCtx); err == nil {
		t.Fatalf("ready before server had a root")
	}

	ctx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := durable.System().WaitLoaded(ctx); err != nil {
		t.Fatalf("wait loaded: %v", err)
	}
	if err := durable.System().Create(ctx); err != nil {
		t.Fatalf("create root: %v", err)
	}

	if err := ephemeral.System().WaitReady(ctx); err != nil {
		t.Fatalf("wait ready: %v", err)
	}
}
