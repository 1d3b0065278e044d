package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// System tracks the node's root state: whether local state has been loaded
// and whether the node holds an authoritative root and is ready for use.
type System struct {
	storage *Storage

	mu      sync.Mutex
	root    string
	loadErr error

	loaded     chan struct{}
	loadedOnce sync.Once
	ready      chan struct{}
	readyOnce  sync.Once
}

func newSystem(storage *Storage) *System {
	return &System{
		storage: storage,
		loaded:  make(chan struct{}),
		ready:   make(chan struct{}),
	}
}

// load reads any persisted root. Called asynchronously for durable nodes.
func (s *System) load() {
	root, err := s.storage.LoadRoot()

	s.mu.Lock()
	s.loadErr = err
	if err == nil && root != "" {
		s.root = root
	}
	s.mu.Unlock()

	s.loadedOnce.Do(func() { close(s.loaded) })
	if err == nil && root != "" {
		s.readyOnce.Do(func() { close(s.ready) })
	}
}

// WaitLoaded blocks until any previously persisted root has been loaded, or
// ctx expires. A durable node may still have no root after loading; see
// Create.
func (s *System) WaitLoaded(ctx context.Context) error {
	select {
	case <-s.loaded:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// WaitReady blocks until the node holds an authoritative root, or ctx
// expires. For an ephemeral node this means the remote peer has delivered
// the system root.
func (s *System) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Root returns the current root ID, if any.
func (s *System) Root() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root, s.root != ""
}

// Create mints a fresh root, persists it, and marks the system ready. Only
// meaningful on a durable node that loaded no prior root.
func (s *System) Create(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	root := uuid.NewString()
	return s.adoptRoot(root, true)
}

// adoptRoot installs the root (persisting when asked) and signals
// readiness. The first adopted root wins; later roots are ignored, which
// keeps a re-delivered handshake harmless.
func (s *System) adoptRoot(root string, persist bool) error {
	if root == "" {
		return fmt.Errorf("engine: empty root")
	}

	s.mu.Lock()
	if s.root != "" {
		s.mu.Unlock()
		return nil
	}
	s.root = root
	s.mu.Unlock()

	if persist {
		if err := s.storage.SaveRoot(root); err != nil {
			return err
		}
	}
	s.loadedOnce.Do(func() { close(s.loaded) })
	s.readyOnce.Do(func() { close(s.ready) })
	return nil
}
