package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-tcp/api"
	"github.com/momentics/hioload-tcp/protocol"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 4, cfg.Acceptors)
	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, 120*time.Second, cfg.IdleTimeout)
	assert.Equal(t, protocol.DefaultMaxFrameSize, cfg.MaxFrameSize)
	assert.True(t, cfg.NoDelay)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
listen_addr = "127.0.0.1:7000"
pool_size = 3
heartbeat_interval = "5s"
idle_timeout = "1m"
max_connections = 100
log_level = "debug"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.ListenAddr)
	assert.Equal(t, 3, cfg.PoolSize)
	assert.Equal(t, 5*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, time.Minute, cfg.IdleTimeout)
	assert.Equal(t, 100, cfg.MaxConnections)
	assert.Equal(t, 4, cfg.Acceptors, "unset keys keep defaults")

	lvl, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)
}

func TestLoadConfigUnknownKey(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `listen_port = 9000`))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"empty addr":     func(c *Config) { c.ListenAddr = "" },
		"no acceptors":   func(c *Config) { c.Acceptors = 0 },
		"negative pool":  func(c *Config) { c.PoolSize = -1 },
		"zero frame":     func(c *Config) { c.MaxFrameSize = 0 },
		"negative idle":  func(c *Config) { c.IdleTimeout = -time.Second },
		"bad log level":  func(c *Config) { c.LogLevel = "loud" },
		"negative limit": func(c *Config) { c.MaxConnections = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, api.ErrInvalidArgument)
			var apiErr *api.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, api.ErrCodeInvalidArgument, apiErr.Code)
		})
	}
}

func TestNewServerRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Acceptors = 0
	_, err := NewServer(cfg)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}
