// File: internal/transport/sockopt_other.go
//go:build !linux
// +build !linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"runtime"

	"github.com/momentics/hioload-tcp/api"
)

// Go's listener already sets SO_REUSEADDR where it applies. SO_REUSEPORT is
// refused rather than silently ignored.
func applySockopts(_ uintptr, opts ListenOptions) error {
	if opts.ReusePort {
		return api.NewError(api.ErrCodeInvalidArgument, "SO_REUSEPORT not supported").
			Wrap(api.ErrInvalidArgument).
			WithContext("os", runtime.GOOS)
	}
	return nil
}

// DetectFeatures reports socket options supported on this platform.
func DetectFeatures() Features {
	return Features{ReuseAddr: true, NoDelay: true, OS: runtime.GOOS}
}
