// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides single-goroutine event loops and a fixed-size,
// round-robin pool of them.
//
// An EventLoop owns a FIFO task queue drained by one goroutine locked to an
// OS thread. Blocking operations are issued with Go; their completion
// handlers, like timer callbacks scheduled with AfterFunc, always run on the
// loop goroutine, so state confined to a loop needs no further locking.
//
// A loop keeps running while it holds its keep-alive token. Stop releases
// the token; the loop then exits once its queue is empty and no async
// operation or timer is outstanding.
package reactor
