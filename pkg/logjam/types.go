package logjam

import (
	"github.com/bft-labs/logjam/internal/app"
	"github.com/bft-labs/logjam/internal/domain"
)

// Re-exported engine types. Users of this package never import internal
// packages directly.
type (
	// Event is a normalized event record.
	Event = domain.Event

	// Key identifies an independent event stream.
	Key = domain.Key

	// Capability is a pausable capability of a key.
	Capability = domain.Capability

	// SenderState is a key's sender state (Idle or Sending).
	SenderState = domain.SenderState

	// ConfigError describes one collected configuration problem.
	ConfigError = domain.ConfigError

	// Controller dispatches one key's events.
	Controller = app.Controller

	// Orchestrator applies bulk operations over a set of keys.
	Orchestrator = app.Orchestrator

	// Dispatch is a send in progress.
	Dispatch = app.Dispatch

	// Outcome is the result of a performed send.
	Outcome = app.Outcome

	// RejectReason explains why a trigger did not send.
	RejectReason = app.RejectReason

	// TriggerOption customizes a single trigger.
	TriggerOption = app.TriggerOption

	// FlushResult is the per-key result of a flush or logout.
	FlushResult = app.FlushResult

	// View is the orchestrator query surface.
	View = app.View
)

// DefaultKey receives events whose key is absent or unusable.
const DefaultKey = domain.DefaultKey

// Capabilities.
const (
	CapLogging = domain.CapLogging
	CapSending = domain.CapSending
	CapAll     = domain.CapAll
)

// Sender states.
const (
	Idle    = domain.Idle
	Sending = domain.Sending
)

// Trigger rejection reasons.
const (
	RejectNone     = app.RejectNone
	RejectInFlight = app.RejectInFlight
	RejectPaused   = app.RejectPaused
	RejectNoSender = app.RejectNoSender
	RejectInactive = app.RejectInactive
	RejectClosed   = app.RejectClosed
	RejectEmpty    = app.RejectEmpty
)

// Errors returned or collected by logjam.
var (
	ErrAlreadyRunning   = domain.ErrAlreadyRunning
	ErrNotRunning       = domain.ErrNotRunning
	ErrShutdownTimeout  = domain.ErrShutdownTimeout
	ErrInvalidConfig    = domain.ErrInvalidConfig
	ErrNoSender         = domain.ErrNoSender
	ErrKeyOwned         = domain.ErrKeyOwned
	ErrSendRejected     = domain.ErrSendRejected
	ErrControllerClosed = domain.ErrControllerClosed
)

// Trigger options and key helpers.
var (
	WithOverride    = app.WithOverride
	WithSendOnce    = app.WithSender
	WithPrepOnce    = app.WithPrep
	SkipEmpty       = app.SkipEmpty
	NormalizeKey    = domain.NormalizeKey
	NormalizeKeys   = domain.NormalizeKeys
	ParseCapability = domain.ParseCapabilities
)
