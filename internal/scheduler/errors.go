package scheduler

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownEvent      = errors.New("scheduler: unknown event")
	ErrInvalidTransition = errors.New("scheduler: invalid state transition")
	ErrNotActive         = errors.New("scheduler: event not active")
	ErrClosed            = errors.New("scheduler: closed")
)

// ConfigError reports a malformed definition. It is raised at load time and
// never affects instances that are already running.
type ConfigError struct {
	ID    string
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("event definition: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("event definition %q: %s: %v", e.ID, e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErr(id, field, format string, args ...any) *ConfigError {
	return &ConfigError{ID: id, Field: field, Err: fmt.Errorf(format, args...)}
}
