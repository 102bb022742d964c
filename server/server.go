// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server accepts connections on one acceptor loop and spreads sessions over
// the event loop pool.

package server

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-tcp/adapters"
	"github.com/momentics/hioload-tcp/api"
	"github.com/momentics/hioload-tcp/control"
	"github.com/momentics/hioload-tcp/internal/session"
	"github.com/momentics/hioload-tcp/internal/transport"
	"github.com/momentics/hioload-tcp/pool"
	"github.com/momentics/hioload-tcp/reactor"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// Server owns the listener, the session registry and, unless one is shared,
// the event loop pool.
type Server struct {
	cfg    *Config
	logger zerolog.Logger

	loops   *reactor.EventLoopPool
	ownPool bool
	exec    api.Executor
	ownExec bool
	bufs    *pool.BytePool
	control *adapters.ControlAdapter

	sessions *session.Store[*Session]

	mu         sync.Mutex // orders Start against Stop
	listener   net.Listener
	acceptLoop *reactor.EventLoop
	backoff    time.Duration // acceptor-loop confined
	addr       atomic.Value  // net.Addr
	started    atomic.Bool
	stopped    atomic.Bool

	onConnect func(*Session)
	onMessage func(*Session, []byte)
	onClose   func(*Session)

	counters       sessionCounters
	accepted       *control.Counter
	rejected       *control.Counter
	acceptFailures *control.Counter
}

// NewServer builds a Server. A nil cfg selects DefaultConfig.
func NewServer(cfg *Config, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		logger:   zerolog.Nop(),
		control:  adapters.NewControlAdapter(),
		sessions: session.NewStore[*Session](64),
	}
	for _, o := range opts {
		o(s)
	}

	if s.loops == nil {
		s.loops = reactor.NewEventLoopPool(
			reactor.WithLogger(s.logger),
			reactor.WithCPUPinning(cfg.PinLoops),
		)
		s.ownPool = true
	}
	if s.exec == nil && cfg.ExecutorWorkers > 0 {
		s.exec = adapters.NewExecutorAdapter(cfg.ExecutorWorkers, cfg.ExecutorQueue, s.logger)
		s.ownExec = true
	}
	if s.bufs == nil {
		s.bufs = pool.NewBytePool(0)
	}

	s.control.SetConfig(cfg.Map())
	s.counters = sessionCounters{
		framesIn:     s.control.Counter("frames.in"),
		framesOut:    s.control.Counter("frames.out"),
		oversized:    s.control.Counter("frames.oversized"),
		idleTimeouts: s.control.Counter("sessions.idle_timeouts"),
		heartbeats:   s.control.Counter("heartbeats.sent"),
	}
	s.accepted = s.control.Counter("connections.accepted")
	s.rejected = s.control.Counter("connections.rejected")
	s.acceptFailures = s.control.Counter("accept.errors")
	s.registerProbes()
	return s, nil
}

func (s *Server) registerProbes() {
	s.control.RegisterDebugProbe("sessions.active", func() any { return s.sessions.Len() })
	s.control.RegisterDebugProbe("loops.size", func() any { return s.loops.Size() })
	s.control.RegisterDebugProbe("loops.failed", func() any { return s.loops.Failed() })
	s.control.RegisterDebugProbe("buffers", func() any { return s.bufs.Stats() })
	if st, ok := s.exec.(interface{ Stats() map[string]int64 }); ok {
		s.control.RegisterDebugProbe("executor", func() any { return st.Stats() })
	}
}

// Start binds the listener, starts an owned pool and issues the configured
// number of concurrent accept operations.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped.Load() {
		return api.ErrServerStopped
	}
	if s.started.Load() {
		return api.ErrAlreadyRunning
	}

	ln, err := transport.Listen(context.Background(), s.cfg.ListenAddr, transport.ListenOptions{
		ReuseAddr: true,
		ReusePort: s.cfg.ReusePort,
	})
	if err != nil {
		return err
	}
	if s.ownPool {
		if err := s.loops.Start(s.cfg.PoolSize); err != nil {
			ln.Close()
			return err
		}
	}
	loop := s.loops.AcquireLoop()
	if loop == nil {
		ln.Close()
		return api.ErrPoolNotRunning
	}

	s.listener = ln
	s.addr.Store(ln.Addr())
	s.acceptLoop = loop
	s.backoff = 0
	s.started.Store(true)
	s.control.SetMetric("listen_addr", ln.Addr().String())

	s.logger.Info().
		Str("addr", ln.Addr().String()).
		Int("loops", s.loops.Size()).
		Int("acceptors", s.cfg.Acceptors).
		Msg("server started")

	for i := 0; i < s.cfg.Acceptors; i++ {
		s.accept()
	}
	return nil
}

// accept issues one accept operation on the acceptor loop.
func (s *Server) accept() {
	if s.stopped.Load() {
		return
	}
	var conn net.Conn
	ok := s.acceptLoop.Go(func() error {
		c, err := s.listener.Accept()
		conn = c
		return err
	}, func(err error) {
		s.onAccept(conn, err)
	})
	if !ok {
		s.logger.Debug().Msg("acceptor loop no longer accepts work")
	}
}

// onAccept runs on the acceptor loop.
func (s *Server) onAccept(conn net.Conn, err error) {
	if err != nil {
		if s.stopped.Load() || isCanceled(err) {
			return
		}
		s.acceptFailures.Inc()
		s.backoff = nextBackoff(s.backoff)
		s.logger.Error().Err(err).Dur("retry_in", s.backoff).Msg("accept failed")
		s.acceptLoop.AfterFunc(s.backoff, s.accept)
		return
	}
	s.backoff = 0
	defer s.accept()

	if s.stopped.Load() {
		conn.Close()
		return
	}
	if limit := s.cfg.MaxConnections; limit > 0 && s.sessions.Len() >= limit {
		s.rejected.Inc()
		s.logger.Warn().Stringer("remote", conn.RemoteAddr()).Int("max_connections", limit).Msg("connection rejected")
		conn.Close()
		return
	}
	loop := s.loops.AcquireLoop()
	if loop == nil {
		conn.Close()
		return
	}

	sess := newSession(uuid.NewString(), conn, loop, sessionConfig{
		maxFrame:     s.cfg.MaxFrameSize,
		heartbeat:    s.cfg.HeartbeatInterval,
		idle:         s.cfg.IdleTimeout,
		writeTimeout: s.cfg.WriteTimeout,
		noDelay:      s.cfg.NoDelay,
	}, s.logger)
	sess.bufs = s.bufs
	sess.exec = s.exec
	sess.stats = &s.counters
	sess.onMessage = s.onMessage
	sess.onClose = s.sessionClosed

	if !s.sessions.Add(sess) {
		// registry already drained by Stop
		conn.Close()
		return
	}
	s.accepted.Inc()
	s.logger.Debug().Str("session", sess.ID()).Stringer("remote", conn.RemoteAddr()).Msg("session accepted")

	// announce before the first read is scheduled; a session drained by Stop
	// in the meantime is never announced
	if s.onConnect != nil && !sess.Closed() {
		s.onConnect(sess)
	}
	if err := sess.start(); err != nil {
		s.logger.Warn().Err(err).Str("session", sess.ID()).Msg("session start failed")
		sess.Close()
	}
}

func (s *Server) sessionClosed(sess *Session) {
	s.sessions.Delete(sess.ID())
	if s.onClose != nil {
		s.onClose(sess)
	}
}

// Stop closes the listener and every active session, then stops an owned
// pool and executor. Only the first call has effect. It returns the listener
// close error, if any. Stop must not be called from a handler running on a
// loop of an owned pool.
func (s *Server) Stop() error {
	if !s.stopped.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	// Drain under shard locks, close outside them: Close re-enters the store.
	drained := s.sessions.Drain()
	for _, sess := range drained {
		sess.Close()
	}
	if s.ownPool {
		s.loops.Stop()
	}
	if s.ownExec {
		s.exec.Close()
	}
	s.logger.Info().Int("sessions_closed", len(drained)).Msg("server stopped")
	return err
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	addr, _ := s.addr.Load().(net.Addr)
	return addr
}

// ActiveSessions returns the number of registered sessions.
func (s *Server) ActiveSessions() int {
	return s.sessions.Len()
}

// Session looks up an active session by id.
func (s *Server) Session(id string) (*Session, bool) {
	return s.sessions.Get(id)
}

// Broadcast sends msg to every active session and returns how many accepted it.
func (s *Server) Broadcast(msg []byte) int {
	n := 0
	s.sessions.Range(func(sess *Session) bool {
		if sess.Send(msg) == nil {
			n++
		}
		return true
	})
	return n
}

// Control exposes metrics, effective config and debug probes.
func (s *Server) Control() api.Control {
	return s.control
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptBackoff
	}
	d *= 2
	if d > maxAcceptBackoff {
		d = maxAcceptBackoff
	}
	return d
}
