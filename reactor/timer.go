// File: reactor/timer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import (
	"sync/atomic"
	"time"
)

const (
	timerPending int32 = iota
	timerFired
	timerCanceled
)

// Timer is a one-shot timer whose callback runs on its loop goroutine.
// A timer stopped from the loop never runs its callback, even when it had
// already expired and its completion was waiting in the queue.
type Timer struct {
	loop  *EventLoop
	fn    func()
	t     *time.Timer
	state atomic.Int32
}

// AfterFunc schedules fn to run on the loop after d. A pending timer counts
// as outstanding work. On a loop that no longer accepts work the returned
// timer is already stopped.
func (el *EventLoop) AfterFunc(d time.Duration, fn func()) *Timer {
	tm := &Timer{loop: el, fn: fn}
	if !el.acquireWork() {
		tm.state.Store(timerCanceled)
		return tm
	}
	tm.t = time.AfterFunc(d, tm.expire)
	return tm
}

// Stop cancels the timer. It reports whether the callback was prevented
// from running.
func (tm *Timer) Stop() bool {
	if !tm.state.CompareAndSwap(timerPending, timerCanceled) {
		return false
	}
	if tm.t != nil && tm.t.Stop() {
		tm.loop.releaseWork()
	}
	return true
}

// Fired reports whether the callback has run.
func (tm *Timer) Fired() bool {
	return tm.state.Load() == timerFired
}

func (tm *Timer) expire() {
	tm.loop.complete(func() {
		if tm.state.CompareAndSwap(timerPending, timerFired) {
			tm.fn()
		}
	})
}
