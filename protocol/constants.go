// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Wire protocol constants.

package protocol

const (
	// HeaderSize is the length prefix size in bytes.
	HeaderSize = 4

	// DefaultMaxFrameSize bounds the declared payload length (10 MiB).
	DefaultMaxFrameSize = 10 * 1024 * 1024

	// MaxEncodableSize is the largest length a 4-byte prefix can carry.
	MaxEncodableSize = 1<<32 - 1
)

// Heartbeat is the keep-alive payload. It travels as an ordinary frame and
// is not distinguishable from application data carrying the same bytes.
var Heartbeat = []byte("HEARTBEAT")
