//go:build !linux
// +build !linux

// File: reactor/affinity_other.go
// Author: momentics <momentics@gmail.com>
//
// Fallback for platforms without thread affinity support.

package reactor

import "errors"

var errAffinityUnsupported = errors.New("CPU affinity not supported")

func pinThread(int) error {
	return errAffinityUnsupported
}
