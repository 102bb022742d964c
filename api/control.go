// File: api/control.go
// Package api defines Control interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Control exposes runtime metrics, effective settings and debug probes.
type Control interface {
	Config() map[string]any
	Stats() map[string]any
	RegisterDebugProbe(name string, fn func() any)
	DumpState() map[string]any
}
