package bridge

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/rzbill/tether/internal/engine"
	pebblestore "github.com/rzbill/tether/internal/storage/pebble"
	logpkg "github.com/rzbill/tether/pkg/log"
)

// storeSubdir keeps the Pebble files separate from other data-dir contents
// (panic spill file, future state).
const storeSubdir = "store"

// InitNode brings up the process's synchronization node. An empty
// remoteEndpoint builds a durable standalone node; otherwise an ephemeral
// node connects to the given host:port and waits for the sync handshake.
//
// The call is idempotent: once the node is Ready, later calls return nil
// immediately without reopening storage or reconnecting. Concurrent
// callers block and join the in-flight bring-up, so all of them observe
// the same terminal outcome. A failed bring-up is sticky: the slot stays
// Failed and every later call returns the original error.
func (b *Bridge) InitNode(ctx context.Context, remoteEndpoint string) error {
	sched, err := b.scheduler()
	if err != nil {
		return err
	}

	b.mu.Lock()
	switch b.state {
	case StateReady:
		b.mu.Unlock()
		b.logger.Debug("init_node called but node already initialized, skipping")
		return nil

	case StateFailed:
		failure := b.initErr
		b.mu.Unlock()
		return failure

	case StateInitializing:
		done := b.initDone
		b.mu.Unlock()
		return b.joinInFlight(ctx, done)

	default: // StateUninitialized: claim the slot
		b.state = StateInitializing
		b.initDone = make(chan struct{})
	}
	done := b.initDone
	b.mu.Unlock()

	bctx := ctx
	if b.cfg.ReadyTimeout > 0 {
		var cancel context.CancelFunc
		bctx, cancel = context.WithTimeout(ctx, b.cfg.ReadyTimeout)
		defer cancel()
	}

	var node *engine.Node
	doErr := sched.Do(bctx, func(taskCtx context.Context) error {
		n, berr := b.openNode(taskCtx, remoteEndpoint)
		if berr != nil {
			return berr
		}
		if taskCtx.Err() != nil {
			// the dispatcher already gave this attempt up; release the
			// node here or its storage lock leaks
			_ = n.Close()
			return taskCtx.Err()
		}
		node = n
		return nil
	})
	failure := b.classify(doErr)

	b.mu.Lock()
	if failure != nil {
		b.state = StateFailed
		b.initErr = failure
	} else {
		b.state = StateReady
		b.node = node
	}
	close(done)
	b.mu.Unlock()

	if failure != nil {
		b.logger.Error("node initialization failed", logpkg.Err(failure))
		return failure
	}
	return nil
}

// joinInFlight waits for the winning caller's bring-up and reports its
// outcome. If the joiner's own ctx ends first it bails out (timeout on
// deadline expiry, internal on cancellation), but the in-flight bring-up
// keeps going and the slot still reaches a single terminal state.
func (b *Bridge) joinInFlight(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return internalError(ctx.Err(), "canceled while waiting for in-flight initialization")
		}
		return timeoutError(ctx.Err(), "waiting for in-flight initialization")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateFailed {
		return b.initErr
	}
	return nil
}

// classify maps a bring-up error to the boundary taxonomy.
func (b *Bridge) classify(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutError(err, "node bring-up exceeded ready timeout")
	}
	return internalError(err, "node bring-up failed")
}

// openNode performs the actual bring-up. It runs inside the scheduler.
func (b *Bridge) openNode(ctx context.Context, remoteEndpoint string) (*engine.Node, error) {
	dataDir := b.cfg.DataDir
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, storageError(err, "create %s", dataDir)
	}

	fsync, err := pebblestore.ParseFsyncMode(b.cfg.Fsync)
	if err != nil {
		return nil, internalError(err, "invalid fsync mode %q", b.cfg.Fsync)
	}

	storage, err := engine.OpenStorage(filepath.Join(dataDir, storeSubdir), fsync)
	if err != nil {
		return nil, storageError(err, "open storage")
	}

	if remoteEndpoint != "" {
		node := engine.New(storage)
		b.logger.Info("node connecting",
			logpkg.Str("node", node.ID), logpkg.Str("endpoint", remoteEndpoint))
		if _, err := engine.Dial(ctx, remoteEndpoint, node); err != nil {
			_ = storage.Close()
			return nil, connectionError(err, "dial %s", remoteEndpoint)
		}
		if err := node.System().WaitReady(ctx); err != nil {
			_ = node.Close()
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, timeoutError(err, "sync handshake with %s", remoteEndpoint)
			}
			return nil, connectionError(err, "sync handshake with %s", remoteEndpoint)
		}
		b.logger.Info("node ready", logpkg.Str("mode", "connected"))
		return node, nil
	}

	node := engine.NewDurable(storage)
	b.logger.Info("node starting", logpkg.Str("node", node.ID), logpkg.Str("mode", "offline"))
	if err := node.System().WaitLoaded(ctx); err != nil {
		_ = node.Close()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, timeoutError(err, "loading persisted root")
		}
		return nil, storageError(err, "loading persisted root")
	}
	if _, ok := node.System().Root(); !ok {
		if err := node.System().Create(ctx); err != nil {
			_ = node.Close()
			return nil, internalError(err, "create root")
		}
	}
	b.logger.Info("node ready", logpkg.Str("mode", "offline"))
	return node, nil
}
