package filter

import (
	"errors"
	"fmt"
)

// Static errors for pattern parsing and filter lifecycle.
var (
	ErrBadPolarity         = errors.New("pattern must begin with 'a' or 'r'")
	ErrUnterminatedPattern = errors.New("invalid separator at end of pattern")
	ErrEmptyPattern        = errors.New("empty pattern body")
	ErrFilterInUse         = errors.New("filter closed while in use")
)

// ConfigError reports a malformed filter pattern. It carries the offending
// pattern verbatim so the broken entry can be located in the configuration.
type ConfigError struct {
	Pattern string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid filter pattern %q: %v", e.Pattern, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// InternalError reports a caller lifetime bug, such as closing a filter
// that still has evaluations in flight. The condition is logged loudly and
// the resource is released anyway; it is never expected in correct operation.
type InternalError struct {
	UseCount int64
	Err      error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %v (use count %d)", e.Err, e.UseCount)
}

func (e *InternalError) Unwrap() error { return e.Err }
