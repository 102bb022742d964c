// Package pool
// Author: momentics <momentics@gmail.com>
//
// Buffer recycling for outbound frames. BytePool keeps power-of-two size
// classes in sync.Pools so steady-state sends allocate nothing.
// See bytepool.go for implementation details.
package pool
