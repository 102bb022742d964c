package transport

import (
	"context"
	"net"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenAcceptsConnections(t *testing.T) {
	ln, err := Listen(context.Background(), "127.0.0.1:0", ListenOptions{ReuseAddr: true})
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	srv := <-accepted
	defer srv.Close()
	assert.NoError(t, SetNoDelay(srv, false))
	assert.NoError(t, SetNoDelay(srv, true))
}

func TestListenReusePort(t *testing.T) {
	if !DetectFeatures().ReusePort {
		_, err := Listen(context.Background(), "127.0.0.1:0", ListenOptions{ReusePort: true})
		assert.Error(t, err)
		return
	}
	first, err := Listen(context.Background(), "127.0.0.1:0", ListenOptions{ReuseAddr: true, ReusePort: true})
	require.NoError(t, err)
	defer first.Close()

	second, err := Listen(context.Background(), first.Addr().String(), ListenOptions{ReuseAddr: true, ReusePort: true})
	require.NoError(t, err, "second listener on the same port")
	second.Close()
}

func TestListenBadAddress(t *testing.T) {
	_, err := Listen(context.Background(), "not-an-address", ListenOptions{})
	assert.Error(t, err)
}

func TestSetNoDelayIgnoresNonTCP(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	assert.NoError(t, SetNoDelay(a, true))
}

func TestDetectFeatures(t *testing.T) {
	f := DetectFeatures()
	assert.Equal(t, runtime.GOOS, f.OS)
	assert.True(t, f.NoDelay)
}
