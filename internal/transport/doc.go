// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Listener construction for the TCP engine. Socket options are applied
// before bind through net.ListenConfig.Control, split by build tags
// (linux / other).

package transport
