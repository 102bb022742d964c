// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics, effective configuration and debug introspection layer.
//
// Provides concurrent-safe state handling primitives including:
//   - Counters and gauges for engine telemetry
//   - Snapshot reads of effective settings
//   - Probe registration and state export
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
