package bridge

import (
	"runtime/debug"
	"sync"

	"github.com/rzbill/tether/internal/config"
	"github.com/rzbill/tether/internal/diag"
	"github.com/rzbill/tether/internal/engine"
	rt "github.com/rzbill/tether/internal/runtime"
	logpkg "github.com/rzbill/tether/pkg/log"
)

// State is the node slot's lifecycle state. It moves forward only:
// Uninitialized -> Initializing -> Ready | Failed, with Ready and Failed
// terminal for the process.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// Bridge is the process-wide context object: it owns the scheduler, the
// node slot, and the diagnostics subsystem, and is passed by shared
// ownership to every entry point instead of living in ambient statics.
type Bridge struct {
	cfg    config.Config
	logger logpkg.Logger

	recorder  *diag.Recorder
	buffer    *diag.LogBuffer
	forwarder *diag.Forwarder

	schedMu sync.Mutex
	sched   *rt.Scheduler

	// mu guards the node slot: check, claim, and publish all happen under
	// this one lock.
	mu       sync.Mutex
	state    State
	node     *engine.Node
	initErr  *Error
	initDone chan struct{}

	logOnce sync.Once
}

// New constructs a Bridge from cfg. The data directory is resolved (not
// created) here; creation happens during node bring-up.
func New(cfg config.Config) *Bridge {
	if cfg.DataDir == "" {
		cfg.DataDir = config.DefaultDataDir()
	}

	logger, err := logpkg.ApplyConfig(&logpkg.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		logger = logpkg.NewLogger()
	}

	b := &Bridge{
		cfg:       cfg,
		logger:    logger.WithComponent("bridge"),
		recorder:  diag.NewRecorder(cfg.DataDir),
		buffer:    diag.NewLogBuffer(),
		forwarder: diag.NewForwarder(),
	}
	// the forwarder is attached up front; it stays silent until the host
	// registers a callback
	logger.AddOutput(b.forwarder)
	return b
}

var (
	defaultMu     sync.Mutex
	defaultBridge *Bridge
)

// Default returns the process-wide Bridge, constructing it on first call
// from defaults overlaid with TETHER_* environment variables.
func Default() *Bridge {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultBridge == nil {
		cfg := config.Default()
		config.FromEnv(&cfg)
		defaultBridge = New(cfg)
	}
	return defaultBridge
}

// InitRuntime ensures the process-wide scheduler exists and that the
// calling goroutine is attached to it. It is idempotent and safe to call
// from any goroutine; construction failure surfaces as a typed error
// rather than aborting the process.
func (b *Bridge) InitRuntime() error {
	b.schedMu.Lock()
	defer b.schedMu.Unlock()
	if b.sched == nil {
		s, err := rt.New(rt.Options{
			OnPanic: func(v interface{}, stack []byte) { b.recorder.Capture(v, stack) },
		})
		if err != nil {
			return internalError(err, "scheduler construction failed")
		}
		b.sched = s
	}
	b.sched.Attach()
	return nil
}

// scheduler returns the scheduler, constructing it if needed.
func (b *Bridge) scheduler() (*rt.Scheduler, error) {
	if err := b.InitRuntime(); err != nil {
		return nil, err
	}
	b.schedMu.Lock()
	defer b.schedMu.Unlock()
	return b.sched, nil
}

// State returns the node slot's current lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Node returns the initialized node, or a NotInitialized error.
func (b *Bridge) Node() (*engine.Node, error) {
	b.mu.Lock()
	node := b.node
	b.mu.Unlock()
	if node == nil {
		return nil, ErrNotInitialized
	}
	return node, nil
}

// Context returns an operation handle bound to the process-default access
// policy for issuing queries and transactions against the engine.
func (b *Bridge) Context() (*engine.Context, error) {
	node, err := b.Node()
	if err != nil {
		return nil, err
	}
	c, cerr := node.Context(engine.PolicyDefault)
	if cerr != nil {
		return nil, internalError(cerr, "context construction failed")
	}
	return c, nil
}

// Logger returns the bridge's process logger.
func (b *Bridge) Logger() logpkg.Logger { return b.logger }

// Close tears down the node and the scheduler. Embedders that own their
// process lifetime call this on shutdown; mobile hosts normally let the OS
// reclaim everything instead.
func (b *Bridge) Close() error {
	b.mu.Lock()
	node := b.node
	b.node = nil
	b.mu.Unlock()

	var err error
	if node != nil {
		err = node.Close()
	}

	b.schedMu.Lock()
	sched := b.sched
	b.sched = nil
	b.schedMu.Unlock()
	if sched != nil {
		sched.Close()
	}
	return err
}

// Guard is meant to be deferred at the top of host-boundary goroutines:
//
//	defer b.Guard()
//
// It recovers a panic, records it in the diagnostics subsystem, and
// discards it so the fault never crosses the boundary.
func (b *Bridge) Guard() {
	if v := recover(); v != nil {
		b.recorder.Capture(v, debug.Stack())
	}
}
