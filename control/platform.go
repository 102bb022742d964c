// control/platform.go
// Author: momentics <momentics@gmail.com>

package control

import "runtime"

func registerCommonProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.gomaxprocs", func() any {
		return runtime.GOMAXPROCS(0)
	})
	dp.RegisterProbe("platform.goroutines", func() any {
		return runtime.NumGoroutine()
	})
}
