// File: internal/transport/sockopt_linux.go
//go:build linux
// +build linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

func applySockopts(fd uintptr, opts ListenOptions) error {
	if opts.ReuseAddr {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			return fmt.Errorf("SO_REUSEADDR: %w", err)
		}
	}
	if opts.ReusePort {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			return fmt.Errorf("SO_REUSEPORT: %w", err)
		}
	}
	return nil
}

// DetectFeatures reports socket options supported on this platform.
func DetectFeatures() Features {
	return Features{ReuseAddr: true, ReusePort: true, NoDelay: true, OS: runtime.GOOS}
}
