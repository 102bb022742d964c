// File: server/options.go
// Package server defines functional options for the Server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-tcp/api"
	"github.com/momentics/hioload-tcp/pool"
	"github.com/momentics/hioload-tcp/reactor"
)

// ServerOption customizes server initialization.
type ServerOption func(*Server)

// WithLogger sets the logger for the server and its sessions.
func WithLogger(l zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// WithEventLoopPool shares an already started pool. The server never stops a
// pool it does not own; stop servers before stopping the pool.
func WithEventLoopPool(p *reactor.EventLoopPool) ServerOption {
	return func(s *Server) {
		s.loops = p
	}
}

// WithExecutor offloads message handlers to ex. The server does not close it.
func WithExecutor(ex api.Executor) ServerOption {
	return func(s *Server) {
		s.exec = ex
	}
}

// WithBytePool sets the buffer pool used for outbound frames.
func WithBytePool(bp *pool.BytePool) ServerOption {
	return func(s *Server) {
		s.bufs = bp
	}
}

// OnConnect registers the connection-established callback. It runs once per
// session on the acceptor loop, before any message or close callback for
// that session.
func OnConnect(fn func(*Session)) ServerOption {
	return func(s *Server) {
		s.onConnect = fn
	}
}

// OnMessage registers the message handler. The payload is owned by the
// handler.
func OnMessage(fn func(*Session, []byte)) ServerOption {
	return func(s *Server) {
		s.onMessage = fn
	}
}

// OnClose registers a callback invoked exactly once per session after it
// has left the registry.
func OnClose(fn func(*Session)) ServerOption {
	return func(s *Server) {
		s.onClose = fn
	}
}
