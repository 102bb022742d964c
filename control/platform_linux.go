//go:build linux
// +build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific platform debug probes.

package control

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// RegisterPlatformProbes sets Linux-specific debug probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	registerCommonProbes(dp)
	dp.RegisterProbe("platform.affinity_cpus", func() any {
		var set unix.CPUSet
		if err := unix.SchedGetaffinity(0, &set); err != nil {
			return runtime.NumCPU()
		}
		return set.Count()
	})
}
