// File: reactor/loop.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EventLoop is a single-goroutine dispatcher with batched draining of an
// unbounded FIFO task queue, async operation completions and loop-side timers.

package reactor

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-tcp/api"
)

// Task is a unit of work executed on a loop goroutine.
type Task func()

const (
	loopIdle int32 = iota
	loopRunning
	loopStopped
	loopFailed
)

// EventLoop runs posted tasks one at a time, in submission order, on a
// dedicated goroutine.
type EventLoop struct {
	id        int
	cpu       int // -1 disables pinning
	batchSize int
	logger    zerolog.Logger

	mu     sync.Mutex
	tasks  *queue.Queue // of Task
	closed bool         // no further task will ever run

	wake     chan struct{}
	quitCh   chan struct{} // keep-alive token, closed on Stop
	doneCh   chan struct{} // closed after the loop goroutine exits
	quitOnce sync.Once

	work       atomic.Int64 // outstanding async operations and timers
	state      atomic.Int32
	dispatched atomic.Uint64
}

// NewEventLoop creates an idle loop. Call Start to spawn its goroutine.
func NewEventLoop(id int, opts ...Option) *EventLoop {
	cfg := defaultLoopConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newEventLoop(id, -1, cfg)
}

func newEventLoop(id, cpu int, cfg config) *EventLoop {
	return &EventLoop{
		id:        id,
		cpu:       cpu,
		batchSize: cfg.batchSize,
		logger:    cfg.logger.With().Int("loop", id).Logger(),
		tasks:     queue.New(),
		wake:      make(chan struct{}, 1),
		quitCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// ID returns the loop index within its pool.
func (el *EventLoop) ID() int {
	return el.id
}

// Start spawns the loop goroutine.
func (el *EventLoop) Start() error {
	if !el.state.CompareAndSwap(loopIdle, loopRunning) {
		return api.ErrAlreadyRunning
	}
	go el.run()
	return nil
}

// Post enqueues task for execution on the loop goroutine. It returns false
// once the loop has shut down or failed; the task is then dropped.
func (el *EventLoop) Post(task Task) bool {
	el.mu.Lock()
	if el.closed {
		el.mu.Unlock()
		return false
	}
	el.tasks.Add(task)
	el.mu.Unlock()
	el.signal()
	return true
}

// Go runs op on a separate goroutine and dispatches done with its result on
// the loop. The pending operation keeps the loop alive across Stop until its
// completion has run. Go returns false if the loop no longer accepts work.
func (el *EventLoop) Go(op func() error, done func(error)) bool {
	if !el.acquireWork() {
		return false
	}
	go func() {
		err := op()
		el.complete(func() { done(err) })
	}()
	return true
}

// Stop releases the keep-alive token and waits until the loop goroutine has
// drained its queue and outstanding work. Idempotent.
func (el *EventLoop) Stop() {
	el.release()
	el.wait()
}

// Done is closed when the loop goroutine exits.
func (el *EventLoop) Done() <-chan struct{} {
	return el.doneCh
}

// Failed reports whether a task panic terminated the loop.
func (el *EventLoop) Failed() bool {
	return el.state.Load() == loopFailed
}

// Running reports whether the loop goroutine is active.
func (el *EventLoop) Running() bool {
	return el.state.Load() == loopRunning
}

// Pending returns the number of queued tasks.
func (el *EventLoop) Pending() int {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.tasks.Length()
}

// Outstanding returns the number of in-flight async operations and timers.
func (el *EventLoop) Outstanding() int64 {
	return el.work.Load()
}

// Dispatched returns the total number of executed tasks.
func (el *EventLoop) Dispatched() uint64 {
	return el.dispatched.Load()
}

func (el *EventLoop) release() {
	el.quitOnce.Do(func() {
		close(el.quitCh)
	})
	if el.state.Load() == loopIdle {
		el.mu.Lock()
		el.closed = true
		el.mu.Unlock()
	}
}

func (el *EventLoop) wait() {
	if el.state.Load() == loopIdle {
		return
	}
	<-el.doneCh
}

func (el *EventLoop) signal() {
	select {
	case el.wake <- struct{}{}:
	default:
	}
}

func (el *EventLoop) acquireWork() bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.closed {
		return false
	}
	el.work.Add(1)
	return true
}

func (el *EventLoop) releaseWork() {
	if el.work.Add(-1) == 0 {
		el.signal()
	}
}

// complete posts a completion that releases one unit of outstanding work.
func (el *EventLoop) complete(task Task) {
	posted := el.Post(func() {
		defer el.releaseWork()
		task()
	})
	if !posted {
		el.releaseWork()
	}
}

func (el *EventLoop) run() {
	defer close(el.doneCh)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if el.cpu >= 0 {
		if err := pinThread(el.cpu); err != nil {
			el.logger.Warn().Err(err).Int("cpu", el.cpu).Msg("event loop pinning failed")
		}
	}

	el.logger.Debug().Msg("event loop started")
	if el.dispatch() {
		el.state.Store(loopStopped)
		el.logger.Debug().Uint64("dispatched", el.dispatched.Load()).Msg("event loop stopped")
	}
}

// dispatch runs the loop until shutdown completes. It returns false when a
// task panicked, which leaves the loop permanently failed.
func (el *EventLoop) dispatch() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			el.fail(r)
			ok = false
		}
	}()

	batch := make([]Task, 0, el.batchSize)
	quit := el.quitCh
	for {
		batch = el.drain(batch[:0])
		if len(batch) == 0 {
			if quit == nil && el.tryClose() {
				return true
			}
			select {
			case <-el.wake:
			case <-quit:
				quit = nil
			}
			continue
		}
		for i, task := range batch {
			batch[i] = nil
			task()
			el.dispatched.Add(1)
		}
	}
}

func (el *EventLoop) drain(batch []Task) []Task {
	el.mu.Lock()
	defer el.mu.Unlock()
	for len(batch) < el.batchSize && el.tasks.Length() > 0 {
		batch = append(batch, el.tasks.Remove().(Task))
	}
	return batch
}

func (el *EventLoop) tryClose() bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.tasks.Length() > 0 || el.work.Load() > 0 {
		return false
	}
	el.closed = true
	return true
}

func (el *EventLoop) fail(r any) {
	el.mu.Lock()
	el.closed = true
	dropped := el.tasks.Length()
	el.tasks = queue.New()
	el.mu.Unlock()
	el.state.Store(loopFailed)
	el.logger.Error().
		Str("panic", fmt.Sprint(r)).
		Int("dropped_tasks", dropped).
		Msg("event loop dispatch failed, loop is no longer usable")
}
