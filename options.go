package sieve

import (
	"fmt"
	"time"
)

// Option configures an [Instance] at creation time.
type Option func(*Instance) error

// WithExtensions restricts the set of enabled extensions to the given
// names, like [Instance.SetExtensions].
func WithExtensions(names ...string) Option {
	return func(i *Instance) error {
		i.registry.setEnabled(i, names)
		return nil
	}
}

// WithExtension registers an additional extension and loads it.
func WithExtension(ext *Extension) Option {
	return func(i *Instance) error {
		_, err := i.registry.register(i, ext, true)
		return err
	}
}

// WithMaxScriptSize caps the source size of compiled scripts in bytes.
// Zero removes the cap.
func WithMaxScriptSize(size int64) Option {
	return func(i *Instance) error {
		if size < 0 {
			return fmt.Errorf("the parameter size of WithMaxScriptSize cannot be negative")
		}
		i.maxScriptSize = size
		return nil
	}
}

// WithMaxActions caps the number of actions one execution may record.
// Zero removes the cap.
func WithMaxActions(max int) Option {
	return func(i *Instance) error {
		if max < 0 {
			return fmt.Errorf("the parameter max of WithMaxActions cannot be negative")
		}
		i.maxActions = max
		return nil
	}
}

// WithMaxRedirects caps the number of redirect actions one execution may
// record. Zero removes the cap.
func WithMaxRedirects(max int) Option {
	return func(i *Instance) error {
		if max < 0 {
			return fmt.Errorf("the parameter max of WithMaxRedirects cannot be negative")
		}
		i.maxRedirects = max
		return nil
	}
}

// WithMaxCPUTime caps the CPU time of one execution. The interpreter
// samples a monotonic clock at every opcode dispatch; on overrun the
// execution ends with [StatusTempFailure] and nothing is committed. Zero
// removes the cap.
func WithMaxCPUTime(d time.Duration) Option {
	return func(i *Instance) error {
		if d < 0 {
			return fmt.Errorf("the parameter d of WithMaxCPUTime cannot be negative")
		}
		i.maxCPUTime = d
		return nil
	}
}

// WithDebug makes the engine report debug information through
// [LogWarning].
func WithDebug() Option {
	return func(i *Instance) error {
		i.debug = true
		return nil
	}
}
