// File: client/client.go
// Package client provides a blocking client for the length-prefixed framing
// served by package server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The client does not reconnect. Heartbeat frames can be filtered on receive.

package client

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-tcp/api"
	"github.com/momentics/hioload-tcp/protocol"
)

// Write buffers that grew past this size are not kept between sends.
const maxRetainedWriteBuffer = 64 * 1024

// ClientConfig holds all configurable parameters for the client.
type ClientConfig struct {
	Addr           string        // host:port
	DialTimeout    time.Duration // 0 = no timeout beyond ctx
	ReadTimeout    time.Duration // per-Recv deadline (0 = none)
	WriteTimeout   time.Duration // per-Send deadline (0 = none)
	MaxFrameSize   int           // largest accepted inbound payload
	SkipHeartbeats bool          // drop "HEARTBEAT" frames in Recv
	ReadBufferSize int
}

// DefaultConfig returns defaults for addr.
func DefaultConfig(addr string) ClientConfig {
	return ClientConfig{
		Addr:           addr,
		DialTimeout:    5 * time.Second,
		MaxFrameSize:   protocol.DefaultMaxFrameSize,
		SkipHeartbeats: true,
		ReadBufferSize: 64 * 1024,
	}
}

// Client is a framed TCP connection. Send and Recv may be used from
// different goroutines; concurrent Sends are serialized.
type Client struct {
	cfg  ClientConfig
	conn net.Conn
	r    *bufio.Reader

	wmu    sync.Mutex
	wbuf   []byte
	closed atomic.Bool

	heartbeats atomic.Uint64
}

// Dial connects to cfg.Addr.
func Dial(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.Addr == "" {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "empty address").Wrap(api.ErrInvalidArgument)
	}
	if cfg.MaxFrameSize <= 0 {
		cfg.MaxFrameSize = protocol.DefaultMaxFrameSize
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = 64 * 1024
	}
	d := net.Dialer{Timeout: cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", cfg.Addr)
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg:  cfg,
		conn: conn,
		r:    bufio.NewReaderSize(conn, cfg.ReadBufferSize),
	}, nil
}

// Send writes msg as one frame.
func (c *Client) Send(msg []byte) error {
	return c.SendBatch(msg)
}

// SendBatch writes all msgs as consecutive frames in a single write.
func (c *Client) SendBatch(msgs ...[]byte) error {
	if c.closed.Load() {
		return api.ErrSessionClosed
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	buf := c.wbuf[:0]
	for _, m := range msgs {
		if len(m) > c.cfg.MaxFrameSize {
			return api.ErrFrameTooLarge
		}
		buf = protocol.AppendFrame(buf, m)
	}
	if cap(buf) <= maxRetainedWriteBuffer {
		c.wbuf = buf
	} else {
		c.wbuf = nil
	}
	if c.cfg.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
			return err
		}
	}
	_, err := c.conn.Write(buf)
	return err
}

// Recv blocks for the next frame and returns its payload.
func (c *Client) Recv() ([]byte, error) {
	for {
		if c.cfg.ReadTimeout > 0 {
			if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
				return nil, err
			}
		}
		payload, err := protocol.ReadFrame(c.r, c.cfg.MaxFrameSize)
		if err != nil {
			if c.closed.Load() && errors.Is(err, net.ErrClosed) {
				return nil, api.ErrSessionClosed
			}
			return nil, err
		}
		if protocol.IsHeartbeat(payload) {
			c.heartbeats.Add(1)
			if c.cfg.SkipHeartbeats {
				continue
			}
		}
		return payload, nil
	}
}

// Heartbeats returns the number of heartbeat frames received.
func (c *Client) Heartbeats() uint64 {
	return c.heartbeats.Load()
}

// LocalAddr returns the local endpoint.
func (c *Client) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// Close closes the connection. Idempotent.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.conn.Close()
}
