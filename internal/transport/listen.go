// File: internal/transport/listen.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"net"
	"syscall"
)

// ListenOptions selects socket options applied to the listening socket.
type ListenOptions struct {
	ReuseAddr bool
	ReusePort bool
}

// Features describes what the current platform can honor.
type Features struct {
	ReuseAddr bool
	ReusePort bool
	NoDelay   bool
	OS        string
}

// Listen binds a TCP listener on addr with opts applied before bind.
func Listen(ctx context.Context, addr string, opts ListenOptions) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var serr error
			err := c.Control(func(fd uintptr) {
				serr = applySockopts(fd, opts)
			})
			if err != nil {
				return err
			}
			return serr
		},
	}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return ln, nil
}

// SetNoDelay toggles Nagle's algorithm on TCP connections. Other conn types
// are left untouched.
func SetNoDelay(conn net.Conn, on bool) error {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	if err := tc.SetNoDelay(on); err != nil {
		return fmt.Errorf("set nodelay: %w", err)
	}
	return nil
}
