// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Length-prefixed frame codec: a 4-byte big-endian unsigned length followed
// by that many opaque payload bytes. No type tag, no checksum.

package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/momentics/hioload-tcp/api"
)

// ErrShortHeader is returned by DecodeHeader for inputs under HeaderSize bytes.
var ErrShortHeader = errors.New("frame header too short")

// EncodeHeader writes the big-endian length of a payload into dst[:4].
func EncodeHeader(dst []byte, n int) {
	binary.BigEndian.PutUint32(dst[:HeaderSize], uint32(n))
}

// DecodeHeader reads the declared payload length from the first 4 bytes.
func DecodeHeader(hdr []byte) (uint32, error) {
	if len(hdr) < HeaderSize {
		return 0, ErrShortHeader
	}
	return binary.BigEndian.Uint32(hdr[:HeaderSize]), nil
}

// AppendFrame appends the encoded frame for payload to dst.
func AppendFrame(dst, payload []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...)
}

// EncodeFrame returns a freshly allocated frame for payload.
func EncodeFrame(payload []byte) ([]byte, error) {
	if uint64(len(payload)) > MaxEncodableSize {
		return nil, api.ErrFrameTooLarge
	}
	return AppendFrame(make([]byte, 0, HeaderSize+len(payload)), payload), nil
}

// DecodeFrame parses one frame from the head of raw.
// It returns the payload (aliasing raw) and the number of consumed bytes.
// Input that does not yet hold a complete frame, including input shorter
// than HeaderSize, yields (nil, 0, nil) rather than ErrShortHeader; only a
// declared length above maxSize is an error.
func DecodeFrame(raw []byte, maxSize int) ([]byte, int, error) {
	n, err := DecodeHeader(raw)
	if err != nil {
		return nil, 0, nil
	}
	if maxSize > 0 && uint64(n) > uint64(maxSize) {
		return nil, 0, fmt.Errorf("declared length %d: %w", n, api.ErrFrameTooLarge)
	}
	end := HeaderSize + int(n)
	if len(raw) < end {
		return nil, 0, nil
	}
	return raw[HeaderSize:end], end, nil
}

// ReadFrame reads one complete frame from r. Declared lengths above maxSize
// are rejected before any payload byte is read.
func ReadFrame(r io.Reader, maxSize int) ([]byte, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n, _ := DecodeHeader(hdr[:])
	if maxSize > 0 && uint64(n) > uint64(maxSize) {
		return nil, fmt.Errorf("declared length %d: %w", n, api.ErrFrameTooLarge)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteFrame writes payload to w as a single frame with one Write call.
func WriteFrame(w io.Writer, payload []byte) error {
	frame, err := EncodeFrame(payload)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// IsHeartbeat reports whether payload equals the heartbeat sentinel.
func IsHeartbeat(payload []byte) bool {
	return bytes.Equal(payload, Heartbeat)
}
