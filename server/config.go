// File: server/config.go
// Package server implements the pooled framed TCP server and its sessions.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-tcp/api"
	"github.com/momentics/hioload-tcp/protocol"
)

// Config holds all server-side configuration parameters.
type Config struct {
	ListenAddr        string        `toml:"listen_addr"`        // TCP bind address, e.g. ":9000"
	PoolSize          int           `toml:"pool_size"`          // event loops; 0 = runtime.NumCPU()
	Acceptors         int           `toml:"acceptors"`          // concurrent accept operations
	HeartbeatInterval time.Duration `toml:"heartbeat_interval"` // 0 disables heartbeats
	IdleTimeout       time.Duration `toml:"idle_timeout"`       // 0 disables the idle timer
	MaxFrameSize      int           `toml:"max_frame_size"`     // largest accepted payload
	WriteTimeout      time.Duration `toml:"write_timeout"`      // optional per-write deadline
	MaxConnections    int           `toml:"max_connections"`    // 0 = unlimited
	NoDelay           bool          `toml:"no_delay"`           // TCP_NODELAY on accepted conns
	ReusePort         bool          `toml:"reuse_port"`         // SO_REUSEPORT (linux)
	PinLoops          bool          `toml:"pin_loops"`          // pin loop i to CPU i % NumCPU
	ExecutorWorkers   int           `toml:"executor_workers"`   // 0 = handlers run on the loop
	ExecutorQueue     int           `toml:"executor_queue"`     // 0 = 4 per worker
	LogLevel          string        `toml:"log_level"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:        ":9000",
		PoolSize:          0,
		Acceptors:         4,
		HeartbeatInterval: 30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxFrameSize:      protocol.DefaultMaxFrameSize,
		NoDelay:           true,
		LogLevel:          "info",
	}
}

// LoadConfig reads a TOML file over DefaultConfig. Unknown keys are an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, api.NewError(api.ErrCodeInvalidArgument, "unknown config keys").
			Wrap(api.ErrInvalidArgument).
			WithContext("keys", strings.Join(keys, ","))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and returns the first violation.
func (c *Config) Validate() error {
	invalid := func(field string, v any) error {
		return api.NewError(api.ErrCodeInvalidArgument, "invalid config value").
			Wrap(api.ErrInvalidArgument).
			WithContext(field, v)
	}
	switch {
	case c.ListenAddr == "":
		return invalid("listen_addr", c.ListenAddr)
	case c.PoolSize < 0:
		return invalid("pool_size", c.PoolSize)
	case c.Acceptors < 1:
		return invalid("acceptors", c.Acceptors)
	case c.HeartbeatInterval < 0:
		return invalid("heartbeat_interval", c.HeartbeatInterval)
	case c.IdleTimeout < 0:
		return invalid("idle_timeout", c.IdleTimeout)
	case c.MaxFrameSize <= 0 || uint64(c.MaxFrameSize) > protocol.MaxEncodableSize:
		return invalid("max_frame_size", c.MaxFrameSize)
	case c.WriteTimeout < 0:
		return invalid("write_timeout", c.WriteTimeout)
	case c.MaxConnections < 0:
		return invalid("max_connections", c.MaxConnections)
	case c.ExecutorWorkers < 0:
		return invalid("executor_workers", c.ExecutorWorkers)
	case c.ExecutorQueue < 0:
		return invalid("executor_queue", c.ExecutorQueue)
	}
	if _, err := c.Level(); err != nil {
		return invalid("log_level", c.LogLevel)
	}
	return nil
}

// Level parses LogLevel. An empty value means info.
func (c *Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(strings.ToLower(c.LogLevel))
}

// Map flattens the config for control snapshots.
func (c *Config) Map() map[string]any {
	return map[string]any{
		"listen_addr":        c.ListenAddr,
		"pool_size":          c.PoolSize,
		"acceptors":          c.Acceptors,
		"heartbeat_interval": c.HeartbeatInterval.String(),
		"idle_timeout":       c.IdleTimeout.String(),
		"max_frame_size":     c.MaxFrameSize,
		"write_timeout":      c.WriteTimeout.String(),
		"max_connections":    c.MaxConnections,
		"no_delay":           c.NoDelay,
		"reuse_port":         c.ReusePort,
		"pin_loops":          c.PinLoops,
		"executor_workers":   c.ExecutorWorkers,
		"executor_queue":     c.ExecutorQueue,
		"log_level":          c.LogLevel,
	}
}
