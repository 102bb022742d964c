// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Control adapter implementing api.Control interface using control package primitives.

package adapters

import (
	"github.com/momentics/hioload-tcp/api"
	"github.com/momentics/hioload-tcp/control"
)

// ControlAdapter bundles metrics, effective config and debug probes.
type ControlAdapter struct {
	config  *control.ConfigStore
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
}

var _ api.Control = (*ControlAdapter)(nil)

// NewControlAdapter creates an adapter with platform probes registered.
func NewControlAdapter() *ControlAdapter {
	adapter := &ControlAdapter{
		config:  control.NewConfigStore(),
		metrics: control.NewMetricsRegistry(),
		debug:   control.NewDebugProbes(),
	}
	control.RegisterPlatformProbes(adapter.debug)
	return adapter
}

func (c *ControlAdapter) Config() map[string]any {
	return c.config.GetSnapshot()
}

func (c *ControlAdapter) SetConfig(cfg map[string]any) {
	c.config.SetConfig(cfg)
}

// Stats merges metrics with probe output; probe keys get a "debug." prefix.
func (c *ControlAdapter) Stats() map[string]any {
	stats := c.metrics.GetSnapshot()
	for k, v := range c.debug.DumpState() {
		stats["debug."+k] = v
	}
	return stats
}

// Counter returns the named counter for hot-path increments.
func (c *ControlAdapter) Counter(key string) *control.Counter {
	return c.metrics.Counter(key)
}

func (c *ControlAdapter) SetMetric(key string, value any) {
	c.metrics.Set(key, value)
}

func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}

func (c *ControlAdapter) DumpState() map[string]any {
	return c.debug.DumpState()
}
