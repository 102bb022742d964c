// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for engine-level monitoring.
// Counters are lock-free once registered; gauges live in a guarded map.

package control

import (
	"sync"
	"sync/atomic"
	"time"
)

// Counter is a monotonically updated int64 metric.
type Counter struct {
	v atomic.Int64
}

// Inc adds one.
func (c *Counter) Inc() { c.v.Add(1) }

// Add adds delta.
func (c *Counter) Add(delta int64) { c.v.Add(delta) }

// Load returns the current value.
func (c *Counter) Load() int64 { return c.v.Load() }

// MetricsRegistry holds counters and arbitrary gauge values.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]*Counter
	gauges   map[string]any
	updated  time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters: make(map[string]*Counter),
		gauges:   make(map[string]any),
	}
}

// Counter returns the counter registered under key, creating it on first use.
// Callers on hot paths should keep the returned pointer.
func (mr *MetricsRegistry) Counter(key string) *Counter {
	mr.mu.RLock()
	c, ok := mr.counters[key]
	mr.mu.RUnlock()
	if ok {
		return c
	}
	mr.mu.Lock()
	defer mr.mu.Unlock()
	if c, ok = mr.counters[key]; !ok {
		c = &Counter{}
		mr.counters[key] = c
	}
	return c
}

// Add increments the counter under key by delta.
func (mr *MetricsRegistry) Add(key string, delta int64) {
	mr.Counter(key).Add(delta)
}

// Set sets or updates a gauge value.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.gauges[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Updated returns the time of the last gauge update.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}

// GetSnapshot returns the latest metrics. Counters are reported as int64.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.counters)+len(mr.gauges))
	for k, v := range mr.gauges {
		out[k] = v
	}
	for k, c := range mr.counters {
		out[k] = c.Load()
	}
	return out
}
