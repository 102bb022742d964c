package server

import (
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	assert.True(t, isCanceled(fmt.Errorf("read: %w", net.ErrClosed)))
	assert.False(t, isCanceled(io.EOF))

	for _, err := range []error{io.EOF, io.ErrUnexpectedEOF, syscall.ECONNRESET, &net.OpError{Op: "write", Err: os.NewSyscallError("write", syscall.EPIPE)}} {
		assert.True(t, isPeerClosed(err), err.Error())
	}
	assert.False(t, isPeerClosed(net.ErrClosed))
	assert.True(t, isTimeout(fmt.Errorf("w: %w", os.ErrDeadlineExceeded)))
}
