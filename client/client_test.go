package client

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-tcp/api"
	"github.com/momentics/hioload-tcp/protocol"
)

// framedPeer accepts one connection and hands it to fn.
func framedPeer(t *testing.T, fn func(net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		fn(conn)
	}()
	return ln.Addr().String()
}

func dial(t *testing.T, addr string, mutate func(*ClientConfig)) *Client {
	t.Helper()
	cfg := DefaultConfig(addr)
	cfg.ReadTimeout = 5 * time.Second
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := Dial(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClientEcho(t *testing.T) {
	addr := framedPeer(t, func(conn net.Conn) {
		for {
			p, err := protocol.ReadFrame(conn, protocol.DefaultMaxFrameSize)
			if err != nil {
				return
			}
			if protocol.WriteFrame(conn, p) != nil {
				return
			}
		}
	})
	c := dial(t, addr, nil)

	require.NoError(t, c.Send([]byte("hello")))
	got, err := c.Recv()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	require.NoError(t, c.SendBatch([]byte("a"), []byte(""), []byte("bc")))
	for _, want := range []string{"a", "", "bc"} {
		got, err := c.Recv()
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
}

func TestClientWireFormat(t *testing.T) {
	raw := make(chan []byte, 1)
	addr := framedPeer(t, func(conn net.Conn) {
		buf := make([]byte, 9)
		_, _ = io.ReadFull(conn, buf)
		raw <- buf
	})
	c := dial(t, addr, nil)
	require.NoError(t, c.Send([]byte("world")))
	assert.Equal(t, []byte{0, 0, 0, 5, 'w', 'o', 'r', 'l', 'd'}, <-raw)
}

func TestClientSkipsHeartbeats(t *testing.T) {
	addr := framedPeer(t, func(conn net.Conn) {
		_ = protocol.WriteFrame(conn, protocol.Heartbeat)
		_ = protocol.WriteFrame(conn, []byte("data"))
		_ = protocol.WriteFrame(conn, protocol.Heartbeat)
		time.Sleep(100 * time.Millisecond)
	})
	c := dial(t, addr, nil)
	got, err := c.Recv()
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))

	_, err = c.Recv()
	assert.Error(t, err)
	assert.Equal(t, uint64(2), c.Heartbeats())
}

func TestClientKeepsHeartbeatsWhenAsked(t *testing.T) {
	addr := framedPeer(t, func(conn net.Conn) {
		_ = protocol.WriteFrame(conn, protocol.Heartbeat)
	})
	c := dial(t, addr, func(cfg *ClientConfig) { cfg.SkipHeartbeats = false })
	got, err := c.Recv()
	require.NoError(t, err)
	assert.True(t, protocol.IsHeartbeat(got))
}

func TestClientRejectsOversizedFrames(t *testing.T) {
	addr := framedPeer(t, func(conn net.Conn) {
		var hdr [protocol.HeaderSize]byte
		protocol.EncodeHeader(hdr[:], 1024)
		_, _ = conn.Write(hdr[:])
		time.Sleep(100 * time.Millisecond)
	})
	c := dial(t, addr, func(cfg *ClientConfig) { cfg.MaxFrameSize = 16 })
	_, err := c.Recv()
	assert.ErrorIs(t, err, api.ErrFrameTooLarge)
	assert.ErrorIs(t, c.Send(make([]byte, 17)), api.ErrFrameTooLarge)
}

func TestClientCloseIdempotent(t *testing.T) {
	addr := framedPeer(t, func(conn net.Conn) { time.Sleep(50 * time.Millisecond) })
	c := dial(t, addr, nil)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Send([]byte("x")), api.ErrSessionClosed)
}

func TestDialRejectsEmptyAddress(t *testing.T) {
	_, err := Dial(context.Background(), ClientConfig{})
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestClientDropsLargeWriteBuffer(t *testing.T) {
	addr := framedPeer(t, func(conn net.Conn) {
		_, _ = io.Copy(io.Discard, conn)
	})
	c := dial(t, addr, nil)

	require.NoError(t, c.Send([]byte("small")))
	assert.NotNil(t, c.wbuf)
	kept := cap(c.wbuf)

	require.NoError(t, c.Send(make([]byte, 1<<20)))
	assert.Nil(t, c.wbuf)

	require.NoError(t, c.Send([]byte("small")))
	assert.LessOrEqual(t, cap(c.wbuf), maxRetainedWriteBuffer)
	assert.Positive(t, kept)
}
