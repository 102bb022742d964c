// File: server/session.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Session drives one accepted connection on its event loop: length-prefixed
// reads, a FIFO write queue, heartbeats and the idle timer.

package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-tcp/api"
	"github.com/momentics/hioload-tcp/control"
	"github.com/momentics/hioload-tcp/internal/transport"
	"github.com/momentics/hioload-tcp/pool"
	"github.com/momentics/hioload-tcp/protocol"
	"github.com/momentics/hioload-tcp/reactor"
)

type sessionConfig struct {
	maxFrame     int
	heartbeat    time.Duration
	idle         time.Duration
	writeTimeout time.Duration
	noDelay      bool
}

// sessionCounters are shared by every session of a server.
type sessionCounters struct {
	framesIn     *control.Counter
	framesOut    *control.Counter
	oversized    *control.Counter
	idleTimeouts *control.Counter
	heartbeats   *control.Counter
}

// Session is one framed connection bound to a single event loop.
type Session struct {
	id     string
	conn   net.Conn
	loop   *reactor.EventLoop
	cfg    sessionConfig
	logger zerolog.Logger
	bufs   *pool.BytePool
	exec   api.Executor
	stats  *sessionCounters

	onMessage func(*Session, []byte)
	onClose   func(*Session)

	// loop-confined
	header    [protocol.HeaderSize]byte
	writeQ    *queue.Queue // of encoded frames
	writing   bool
	heartbeat *reactor.Timer
	idle      *reactor.Timer

	state  atomic.Int32
	closed atomic.Bool
	done   chan struct{}

	framesIn  atomic.Uint64
	framesOut atomic.Uint64
	bytesIn   atomic.Uint64
	bytesOut  atomic.Uint64
	pending   atomic.Int64
}

func newSession(id string, conn net.Conn, loop *reactor.EventLoop, cfg sessionConfig, logger zerolog.Logger) *Session {
	s := &Session{
		id:     id,
		conn:   conn,
		loop:   loop,
		cfg:    cfg,
		logger: logger.With().Str("session", id).Stringer("remote", conn.RemoteAddr()).Logger(),
		writeQ: queue.New(),
		done:   make(chan struct{}),
	}
	s.state.Store(int32(api.SessionIdle))
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// RemoteAddr returns the peer address.
func (s *Session) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

// LocalAddr returns the local address.
func (s *Session) LocalAddr() net.Addr { return s.conn.LocalAddr() }

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} { return s.done }

// Closed reports whether Close has been called.
func (s *Session) Closed() bool { return s.closed.Load() }

// State returns the current read-side state.
func (s *Session) State() api.SessionState {
	return api.SessionState(s.state.Load())
}

// Stats returns per-session traffic counters.
func (s *Session) Stats() api.SessionStats {
	return api.SessionStats{
		FramesIn:  s.framesIn.Load(),
		FramesOut: s.framesOut.Load(),
		BytesIn:   s.bytesIn.Load(),
		BytesOut:  s.bytesOut.Load(),
		Pending:   int(s.pending.Load()),
	}
}

// setState never leaves the closed state.
func (s *Session) setState(st api.SessionState) {
	for {
		cur := s.state.Load()
		if cur == int32(api.SessionClosed) || s.state.CompareAndSwap(cur, int32(st)) {
			return
		}
	}
}

// start schedules socket setup, the heartbeat and the first header read on
// the session loop.
func (s *Session) start() error {
	if !s.loop.Post(s.run) {
		return api.ErrLoopStopped
	}
	return nil
}

func (s *Session) run() {
	if s.closed.Load() {
		return
	}
	if s.cfg.noDelay {
		if err := transport.SetNoDelay(s.conn, true); err != nil {
			s.logger.Debug().Err(err).Msg("nodelay not applied")
		}
	}
	s.armHeartbeat()
	s.readHeader()
}

// Send queues msg as one frame. Safe for concurrent use; frames from a single
// goroutine go out in call order.
func (s *Session) Send(msg []byte) error {
	if s.closed.Load() {
		return api.ErrSessionClosed
	}
	if len(msg) > s.cfg.maxFrame {
		return fmt.Errorf("send %d bytes (max %d): %w", len(msg), s.cfg.maxFrame, api.ErrFrameTooLarge)
	}
	frame := s.bufs.Get(protocol.HeaderSize + len(msg))
	protocol.EncodeHeader(frame, len(msg))
	copy(frame[protocol.HeaderSize:], msg)

	s.pending.Add(1)
	if !s.loop.Post(func() { s.enqueue(frame) }) {
		s.pending.Add(-1)
		s.bufs.Put(frame)
		return api.ErrLoopStopped
	}
	return nil
}

// Close shuts the session down. Only the first call has effect; it closes the
// socket, releases loop-side state and invokes the close callback.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.state.Store(int32(api.SessionClosed))
	err := s.conn.Close()
	s.loop.Post(s.teardown)
	close(s.done)
	if s.onClose != nil {
		s.onClose(s)
	}
	return err
}

func (s *Session) teardown() {
	s.stopIdle()
	if s.heartbeat != nil {
		s.heartbeat.Stop()
		s.heartbeat = nil
	}
	// an in-flight write still owns the head frame; its completion drains
	if !s.writing {
		s.drainQueue()
	}
}

func (s *Session) readHeader() {
	if s.closed.Load() {
		return
	}
	s.setState(api.SessionAwaitHeader)
	s.armIdle()
	ok := s.loop.Go(func() error {
		_, err := io.ReadFull(s.conn, s.header[:])
		return err
	}, s.onHeader)
	if !ok {
		s.Close()
	}
}

func (s *Session) onHeader(err error) {
	s.stopIdle()
	if err != nil {
		s.fail("read header", err)
		return
	}
	if s.closed.Load() {
		return
	}
	n, _ := protocol.DecodeHeader(s.header[:])
	if uint64(n) > uint64(s.cfg.maxFrame) {
		s.stats.oversized.Inc()
		s.logger.Warn().Uint32("declared", n).Int("max", s.cfg.maxFrame).Msg("frame too large, closing")
		s.Close()
		return
	}
	if n == 0 {
		s.deliver([]byte{})
		s.readHeader()
		return
	}
	s.readBody(int(n))
}

func (s *Session) readBody(n int) {
	if s.closed.Load() {
		return
	}
	s.setState(api.SessionAwaitBody)
	body := make([]byte, n)
	ok := s.loop.Go(func() error {
		_, err := io.ReadFull(s.conn, body)
		return err
	}, func(err error) {
		if err != nil {
			s.fail("read body", err)
			return
		}
		if s.closed.Load() {
			return
		}
		s.deliver(body)
		s.readHeader()
	})
	if !ok {
		s.Close()
	}
}

func (s *Session) deliver(payload []byte) {
	s.framesIn.Add(1)
	s.bytesIn.Add(uint64(len(payload)))
	s.stats.framesIn.Inc()
	if s.onMessage == nil {
		return
	}
	if s.exec == nil {
		s.onMessage(s, payload)
		return
	}
	err := s.exec.Submit(func() { s.onMessage(s, payload) })
	switch {
	case err == nil:
	case errors.Is(err, api.ErrExecutorBusy):
		s.onMessage(s, payload)
	default:
		s.logger.Debug().Err(err).Int("bytes", len(payload)).Msg("message dropped")
	}
}

func (s *Session) enqueue(frame []byte) {
	if s.closed.Load() {
		s.release(frame)
		return
	}
	s.writeQ.Add(frame)
	if !s.writing {
		s.writeNext()
	}
}

func (s *Session) writeNext() {
	if s.writeQ.Length() == 0 {
		return
	}
	frame := s.writeQ.Peek().([]byte)
	s.writing = true
	ok := s.loop.Go(func() error {
		if s.cfg.writeTimeout > 0 {
			if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.writeTimeout)); err != nil {
				return err
			}
		}
		_, err := s.conn.Write(frame)
		return err
	}, s.onWrite)
	if !ok {
		s.writing = false
		s.Close()
	}
}

func (s *Session) onWrite(err error) {
	s.writing = false
	frame := s.writeQ.Remove().([]byte)
	n := len(frame) - protocol.HeaderSize
	s.release(frame)
	if err != nil {
		s.fail("write", err)
		s.drainQueue()
		return
	}
	s.framesOut.Add(1)
	s.bytesOut.Add(uint64(n))
	s.stats.framesOut.Inc()
	if s.closed.Load() {
		s.drainQueue()
		return
	}
	s.writeNext()
}

func (s *Session) drainQueue() {
	for s.writeQ.Length() > 0 {
		s.release(s.writeQ.Remove().([]byte))
	}
}

func (s *Session) release(frame []byte) {
	s.pending.Add(-1)
	s.bufs.Put(frame)
}

func (s *Session) armHeartbeat() {
	if s.cfg.heartbeat <= 0 || s.closed.Load() {
		return
	}
	s.heartbeat = s.loop.AfterFunc(s.cfg.heartbeat, s.onHeartbeat)
}

func (s *Session) onHeartbeat() {
	if s.closed.Load() {
		return
	}
	if err := s.Send(protocol.Heartbeat); err != nil {
		s.logger.Debug().Err(err).Msg("heartbeat not sent")
	} else {
		s.stats.heartbeats.Inc()
	}
	s.armHeartbeat()
}

func (s *Session) armIdle() {
	if s.cfg.idle <= 0 {
		return
	}
	s.idle = s.loop.AfterFunc(s.cfg.idle, func() {
		if s.closed.Load() {
			return
		}
		s.stats.idleTimeouts.Inc()
		s.logger.Info().Dur("idle_timeout", s.cfg.idle).Msg("session idle, closing")
		s.Close()
	})
}

func (s *Session) stopIdle() {
	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}
}

// fail logs an I/O error at a level matching its class and closes.
func (s *Session) fail(op string, err error) {
	switch {
	case s.closed.Load() || isCanceled(err):
		s.logger.Debug().Err(err).Str("op", op).Msg("operation canceled")
	case isPeerClosed(err):
		s.logger.Info().Err(err).Str("op", op).Msg("peer closed connection")
	case isTimeout(err):
		s.logger.Warn().Err(err).Str("op", op).Msg("i/o timeout")
	default:
		s.logger.Warn().Err(err).Str("op", op).Msg("i/o error")
	}
	s.Close()
}
