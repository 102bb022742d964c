// File: reactor/pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EventLoopPool owns a fixed set of event loops and hands them out
// round-robin. Fairness is statistical under contention: the cursor is a
// single atomic counter, so the interleaving between concurrent callers is
// unspecified while each caller still sees a cyclic sequence.

package reactor

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-tcp/api"
)

// EventLoopPool is a fixed-size pool of independent event loops.
type EventLoopPool struct {
	cfg   config
	mu    sync.Mutex // serializes Start and Stop
	loops atomic.Pointer[[]*EventLoop]
	next  atomic.Uint64
}

// NewEventLoopPool creates a pool. No loop exists until Start.
func NewEventLoopPool(opts ...Option) *EventLoopPool {
	cfg := defaultLoopConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &EventLoopPool{cfg: cfg}
}

// Start creates poolSize loops, each with its own goroutine. A non-positive
// size selects runtime.NumCPU().
func (p *EventLoopPool) Start(poolSize int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loops.Load() != nil {
		return api.ErrAlreadyRunning
	}
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
	}

	ncpu := runtime.NumCPU()
	loops := make([]*EventLoop, poolSize)
	for i := range loops {
		cpu := -1
		if p.cfg.pin {
			cpu = i % ncpu
		}
		loops[i] = newEventLoop(i, cpu, p.cfg)
		_ = loops[i].Start()
	}
	p.next.Store(0)
	p.loops.Store(&loops)

	p.cfg.logger.Info().Int("size", poolSize).Bool("pinned", p.cfg.pin).Msg("event loop pool started")
	return nil
}

// AcquireLoop returns the loop under the cursor and advances it. It returns
// nil when the pool is not running.
func (p *EventLoopPool) AcquireLoop() *EventLoop {
	lp := p.loops.Load()
	if lp == nil {
		return nil
	}
	loops := *lp
	idx := p.next.Add(1) - 1
	return loops[idx%uint64(len(loops))]
}

// Stop releases every keep-alive token, waits for all loop goroutines to
// exit and clears the pool. Idempotent.
func (p *EventLoopPool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	lp := p.loops.Swap(nil)
	if lp == nil {
		return
	}
	for _, l := range *lp {
		l.release()
	}
	for _, l := range *lp {
		l.wait()
	}
	p.cfg.logger.Info().Int("size", len(*lp)).Msg("event loop pool stopped")
}

// Running reports whether the pool has been started and not stopped.
func (p *EventLoopPool) Running() bool {
	return p.loops.Load() != nil
}

// Size returns the number of loops, or 0 when stopped.
func (p *EventLoopPool) Size() int {
	lp := p.loops.Load()
	if lp == nil {
		return 0
	}
	return len(*lp)
}

// Loops returns a copy of the loop list.
func (p *EventLoopPool) Loops() []*EventLoop {
	lp := p.loops.Load()
	if lp == nil {
		return nil
	}
	return append([]*EventLoop(nil), *lp...)
}

// Failed returns how many loops have been lost to task panics. A failed loop
// stays in rotation; the pool does not replace it.
func (p *EventLoopPool) Failed() int {
	n := 0
	for _, l := range p.Loops() {
		if l.Failed() {
			n++
		}
	}
	return n
}
