package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by Resolve once Close has been called.
	ErrClosed = errors.New("cache is closed")

	// ErrEmptyKey is returned when Resolve is called with an empty key.
	ErrEmptyKey = errors.New("key is required")

	// ErrInvalidConfig is matched by every *ConfigError.
	ErrInvalidConfig = errors.New("invalid cache config")
)

// ConfigError reports a Config field that New refused to accept.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid cache config: %s %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidConfig) match any ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// ResolutionError wraps a failure of the upstream resolver. A failed
// resolution is never cached.
type ResolutionError struct {
	Key string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %q: %v", e.Key, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
