package difyflow

import (
	"sync"
	"time"
)

// globalDefaults holds the options every new Engine starts from.
var globalDefaults = &engineDefaults{
	opts: initialOptions(),
}

type engineDefaults struct {
	mu   sync.RWMutex
	opts engineOptions
}

func initialOptions() engineOptions {
	return engineOptions{
		maxSteps: DefaultMaxSteps,
	}
}

// SetDefaults applies opts to the defaults used by engines created afterwards.
// Engines that already exist are not affected.
func SetDefaults(opts ...Option) {
	globalDefaults.mu.Lock()
	defer globalDefaults.mu.Unlock()

	for _, opt := range opts {
		opt(&globalDefaults.opts)
	}
}

// ResetDefaults restores the initial defaults.
func ResetDefaults() {
	globalDefaults.mu.Lock()
	defer globalDefaults.mu.Unlock()

	globalDefaults.opts = initialOptions()
}

// DefaultTimeout returns the run timeout new engines start with.
func DefaultTimeout() time.Duration {
	globalDefaults.mu.RLock()
	defer globalDefaults.mu.RUnlock()
	return globalDefaults.opts.timeout
}

// currentDefaults returns a copy of the current defaults.
func currentDefaults() engineOptions {
	globalDefaults.mu.RLock()
	defer globalDefaults.mu.RUnlock()
	return globalDefaults.opts
}
