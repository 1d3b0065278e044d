package runtime

import (
	"context"
	"errors"
	"fmt"
	gruntime "runtime"
	"runtime/debug"
	"sync"

	"github.com/joeycumines/goroutineid"
)

// ErrClosed is returned for work submitted after Close.
var ErrClosed = errors.New("runtime: scheduler closed")

// PanicHandler receives recovered panics from scheduled work.
type PanicHandler func(recovered interface{}, stack []byte)

// Options configures the scheduler.
type Options struct {
	// Workers is the pool size. Zero means GOMAXPROCS-sized.
	Workers int
	// QueueDepth bounds pending tasks; submitters block when it is full.
	// Zero means 256.
	QueueDepth int
	// OnPanic observes panics recovered from scheduled work. Optional.
	OnPanic PanicHandler
}

// Scheduler is the process-wide multi-threaded scheduler. Exactly one
// instance is expected per process; the bridge constructs it lazily on
// first demand and never tears it down before exit.
type Scheduler struct {
	tasks    chan func()
	done     chan struct{}
	onPanic  PanicHandler
	attached sync.Map // goroutine id -> struct{}
	closing  sync.Once
	wg       sync.WaitGroup
}

// New builds the scheduler and starts its workers. Construction failure is
// surfaced as an error so the caller can report it across the boundary
// instead of aborting.
func New(opts Options) (*Scheduler, error) {
	if opts.Workers < 0 {
		return nil, fmt.Errorf("runtime: negative worker count %d", opts.Workers)
	}
	workers := opts.Workers
	if workers == 0 {
		workers = gruntime.GOMAXPROCS(0)
	}
	depth := opts.QueueDepth
	if depth < 0 {
		return nil, fmt.Errorf("runtime: negative queue depth %d", opts.QueueDepth)
	}
	if depth == 0 {
		depth = 256
	}

	s := &Scheduler{
		tasks:   make(chan func(), depth),
		done:    make(chan struct{}),
		onPanic: opts.OnPanic,
	}
	s.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go s.worker()
	}
	return s, nil
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case fn := <-s.tasks:
			s.run(fn)
		}
	}
}

// run executes one task, containing any panic so the worker survives.
func (s *Scheduler) run(fn func()) {
	defer func() {
		if v := recover(); v != nil {
			s.reportPanic(v, debug.Stack())
		}
	}()
	fn()
}

func (s *Scheduler) reportPanic(v interface{}, stack []byte) {
	h := s.onPanic
	if h == nil {
		return
	}
	// the handler is a diagnostic path; its own panic is swallowed
	defer func() { _ = recover() }()
	h(v, stack)
}

// Attach registers the calling goroutine with the scheduler. It is
// idempotent per goroutine and cached, so repeated calls are no-ops. There
// is no detach; an attachment lives as long as its goroutine.
func (s *Scheduler) Attach() {
	s.attached.LoadOrStore(goroutineid.Get(), struct{}{})
}

// Attached reports whether the calling goroutine has attached.
func (s *Scheduler) Attached() bool {
	_, ok := s.attached.Load(goroutineid.Get())
	return ok
}

// Submit queues fire-and-forget work. It blocks while the queue is full and
// returns ErrClosed after Close.
func (s *Scheduler) Submit(fn func()) error {
	if fn == nil {
		return nil
	}
	s.Attach()
	// done wins over the buffered send: with the workers gone both cases
	// can be ready at once and select would pick at random
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case <-s.done:
		return ErrClosed
	case s.tasks <- fn:
	}
	select {
	case <-s.done:
		// closed while (or right before) we enqueued; nothing drains the
		// queue anymore, so pull a task back out and report the refusal
		select {
		case <-s.tasks:
		default:
		}
		return ErrClosed
	default:
		return nil
	}
}

// Do dispatches fn into the scheduler and waits for its result. The wait is
// bounded by ctx; a task panic surfaces as an error rather than crashing
// the caller.
func (s *Scheduler) Do(ctx context.Context, fn func(context.Context) error) error {
	s.Attach()
	res := make(chan error, 1)
	task := func() {
		var err error
		func() {
			defer func() {
				if v := recover(); v != nil {
					s.reportPanic(v, debug.Stack())
					err = fmt.Errorf("runtime: task panicked: %v", v)
				}
			}()
			err = fn(ctx)
		}()
		res <- err
	}

	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case s.tasks <- task:
	}

	// a finished task wins over shutdown or ctx expiry so its result is
	// not dropped on the floor
	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		select {
		case err := <-res:
			return err
		default:
		}
		return ctx.Err()
	case <-s.done:
		select {
		case err := <-res:
			return err
		default:
		}
		return ErrClosed
	}
}

// Close stops the workers. Pending queued tasks are dropped. Intended for
// tests; the process-wide scheduler normally lives until exit.
func (s *Scheduler) Close() {
	s.closing.Do(func() { close(s.done) })
	s.wg.Wait()
}
