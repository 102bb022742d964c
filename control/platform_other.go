//go:build !linux
// +build !linux

// control/platform_other.go
// Author: momentics <momentics@gmail.com>

package control

// RegisterPlatformProbes sets the portable debug probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	registerCommonProbes(dp)
}
