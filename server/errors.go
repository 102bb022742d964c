// File: server/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"

	"github.com/momentics/hioload-tcp/api"
)

// isCanceled reports errors produced by our own shutdown of a socket or loop.
func isCanceled(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, api.ErrLoopStopped) ||
		errors.Is(err, api.ErrServerStopped)
}

// isPeerClosed reports an orderly or abortive close by the remote end.
func isPeerClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

func isTimeout(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded)
}
