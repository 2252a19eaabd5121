package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions in the logjam domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("logjam: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("logjam: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("logjam: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("logjam: invalid configuration")

	// ErrNoSender is recorded when a main instance is configured without a sender.
	ErrNoSender = errors.New("logjam: no sender configured")

	// ErrKeyOwned is recorded when a second main controller claims a key.
	ErrKeyOwned = errors.New("logjam: key already owned by a live controller")

	// ErrSendRejected marks a resolved response that did not report success.
	ErrSendRejected = errors.New("logjam: sender did not report success")

	// ErrControllerClosed reports a trigger on a closed controller.
	ErrControllerClosed = errors.New("logjam: controller closed")
)

// ConfigError describes a configuration problem that was collected instead of
// returned. The component keeps running in a degraded mode.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("logjam: config %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("logjam: config %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
