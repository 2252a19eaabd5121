package ports

import (
	"context"

	"github.com/bft-labs/logjam/internal/domain"
)

// Batch is the unit handed to a Sender.
type Batch struct {
	// Key is the stream the events were collected under
	Key domain.Key

	// Events is the snapshot of the active buffer taken when the send began
	Events []domain.Event

	// Payload is the output of the prep function, or Events when none is set
	Payload any
}

// Response is what a sink reported for a batch.
// A batch counts as delivered only when Success is true and no error was returned.
type Response struct {
	Success bool

	// Body carries sink-specific detail (decoded response, ids, etc.)
	Body any
}

// Sender transmits a batch to the remote sink.
// Implementations may be invoked concurrently for different keys; the engine
// guarantees at most one in-flight Send per key unless a trigger overrides it.
type Sender interface {
	Send(ctx context.Context, batch Batch) (Response, error)
}

// SenderFunc adapts an ordinary function to the Sender interface.
type SenderFunc func(ctx context.Context, batch Batch) (Response, error)

// Send calls f(ctx, batch).
func (f SenderFunc) Send(ctx context.Context, batch Batch) (Response, error) {
	return f(ctx, batch)
}

// PrepFunc transforms a batch's events into the payload handed to the sender.
// It must be pure and synchronous.
type PrepFunc func(events []domain.Event) any

// IdentityPrep returns the events unchanged.
func IdentityPrep(events []domain.Event) any {
	return events
}
