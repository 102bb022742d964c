// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations and constants.

package api

// SessionState enumerates the read-side state of a session.
type SessionState int32

const (
	SessionIdle SessionState = iota
	SessionAwaitHeader
	SessionAwaitBody
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionAwaitHeader:
		return "await-header"
	case SessionAwaitBody:
		return "await-body"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// SessionStats is a point-in-time snapshot of session traffic.
type SessionStats struct {
	FramesIn  uint64
	FramesOut uint64
	BytesIn   uint64
	BytesOut  uint64
	Pending   int // frames queued for write, including the one in flight
}
