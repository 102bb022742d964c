//go:build linux
// +build linux

// File: reactor/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux thread pinning through sched_setaffinity(2).

package reactor

import "golang.org/x/sys/unix"

// pinThread binds the calling OS thread to cpu. The caller must hold
// runtime.LockOSThread.
func pinThread(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
