// File: reactor/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import "github.com/rs/zerolog"

const defaultBatchSize = 64

type config struct {
	logger    zerolog.Logger
	batchSize int
	pin       bool
}

func defaultLoopConfig() config {
	return config{
		logger:    zerolog.Nop(),
		batchSize: defaultBatchSize,
	}
}

// Option customizes event loops and pools.
type Option func(*config)

// WithLogger sets the logger used for loop lifecycle and failures.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithBatchSize bounds how many queued tasks a loop takes per dispatch cycle.
func WithBatchSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithCPUPinning pins loop i of a pool to CPU i modulo the CPU count.
func WithCPUPinning(enabled bool) Option {
	return func(c *config) {
		c.pin = enabled
	}
}
