package domain

import (
	"errors"
	"fmt"
)

// Failure classes shared by every component. Adapters wrap their causes with
// one of these so orchestration code can branch with errors.Is.
var (
	// ErrConfiguration marks missing or invalid settings; startup aborts on it.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransientExternal marks network, timeout or non-2xx upstream failures.
	ErrTransientExternal = errors.New("transient external error")
	// ErrParse marks a well-formed response that lacks the expected fields.
	ErrParse = errors.New("parse error")
	// ErrQuotaExceeded is a signal, not a failure: the caller stops the current pass.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrNotFound is returned by repositories for absent rows.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized marks a platform call rejected for its credentials.
	ErrUnauthorized = errors.New("unauthorized")
)

// ConfigurationError wraps a configuration problem with context.
func ConfigurationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// TransientError tags cause as a retry-next-tick upstream failure.
func TransientError(op string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrTransientExternal, op)
	}
	return fmt.Errorf("%w: %s: %w", ErrTransientExternal, op, cause)
}

// ParseError tags an unexpected upstream payload.
func ParseError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}
