// Package config holds the tunables for a Context: batch sizing, allocator
// hooks, the fatal-registration-error hook, and the extension search path.
package config

import (
	"errors"
	"time"
	"unsafe"
)

// Config is the top-level configuration struct. All fields have safe
// defaults so callers can start with Default() and override only what they
// need.
type Config struct {
	// BatchSize bounds how many pixels the engine converts per call into a
	// leaf kernel, and therefore the size of the ping-pong scratch buffers
	// pooled per plan. default: 2048.
	BatchSize int

	// PlanCacheSize caps the number of (src, dst) plans memoized by the
	// planner; 0 means unbounded.
	PlanCacheSize int

	// PlanTimeout bounds how long the planner's graph search may run before
	// giving up with ErrNoPath; 0 means no timeout.
	PlanTimeout time.Duration

	// Alloc/Free let callers supply a custom allocator for kernel scratch
	// space, mirroring the tagged-pointer allocator the reference
	// implementation used internally. Both nil means use the Go runtime
	// allocator. Supplying one without the other is a configuration error
	// (see Validate).
	Alloc func(size int) unsafe.Pointer
	Free  func(ptr unsafe.Pointer, size int)

	// FatalOnImbalance causes AllocStats to invoke the Fatal hook when Free
	// has been called more often than Alloc — a sign of a double free. Only
	// the call counts are compared; the size passed to Free is not checked.
	FatalOnImbalance bool

	// Fatal receives errors from registration calls that spec.md §7
	// classifies as fatal (duplicate mismatch, invalid attributes, alloc
	// failure). nil means panic, which is also Context's own default.
	Fatal func(error)

	// ExtensionPath is the environment variable name searched for
	// colon-separated directories of compiled extension plugins (".so"
	// files) to load at startup. Empty disables extension loading.
	// default: "FISH_EXTENSION_PATH".
	ExtensionPath string

	// LogLevel is "debug", "info", "warn", or "error".
	LogLevel string
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		BatchSize:        2048,
		PlanCacheSize:    1024,
		PlanTimeout:      0,
		FatalOnImbalance: false,
		ExtensionPath:    "FISH_EXTENSION_PATH",
		LogLevel:         "info",
	}
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.BatchSize <= 0 {
		return errors.New("config: BatchSize must be positive")
	}
	if c.PlanCacheSize < 0 {
		return errors.New("config: PlanCacheSize must not be negative")
	}
	if (c.Alloc == nil) != (c.Free == nil) {
		return errors.New("config: Alloc and Free must both be set or both be nil")
	}
	return nil
}
