package logjam

import "time"

// State represents the lifecycle state of a Logjam instance.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// SendSuccessEvent is emitted after a batch was delivered.
type SendSuccessEvent struct {
	Key      Key
	Count    int
	Duration time.Duration
}

// SendErrorEvent is emitted after a send failed. The events stay buffered.
type SendErrorEvent struct {
	Key   Key
	Error error
	Count int
}

// ConfigErrorEvent is emitted when a controller collects a configuration error.
type ConfigErrorEvent struct {
	Key   Key
	Error error
}

// EventHandler receives logjam events.
// Methods are called synchronously from send goroutines and must not block.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnSendSuccess(event SendSuccessEvent)
	OnSendError(event SendErrorEvent)
	OnConfigError(event ConfigErrorEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnSendSuccess(SendSuccessEvent) {}
func (BaseEventHandler) OnSendError(SendErrorEvent)     {}
func (BaseEventHandler) OnConfigError(ConfigErrorEvent) {}
