package sender

import (
	"time"

	"github.com/bft-labs/logjam/internal/domain"
	"github.com/bft-labs/logjam/internal/ports"
)

// Sender transmits one key's batch to a sink.
// Returning an error or a Response with Success false marks the batch failed;
// its events stay buffered.
type Sender = ports.Sender

// Batch is the unit handed to a Sender.
type Batch = ports.Batch

// Response is what a sink reported for a batch.
type Response = ports.Response

// PrepFunc transforms a batch's events into the payload handed to the sender.
type PrepFunc = ports.PrepFunc

// Func adapts an ordinary function to the Sender interface.
type Func = ports.SenderFunc

// HTTPClient abstracts HTTP request execution for testing and custom transports.
// The standard *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// EnvelopePayload is the payload produced by Envelope.
type EnvelopePayload struct {
	Key    string         `json:"key"`
	SentAt string         `json:"sentAt"`
	Count  int            `json:"count"`
	Events []domain.Event `json:"events"`
}

// Envelope returns a prep function that wraps a batch with its key, the send
// time and the event count.
func Envelope(key domain.Key) PrepFunc {
	return func(events []domain.Event) any {
		return EnvelopePayload{
			Key:    string(key),
			SentAt: time.Now().UTC().Format(time.RFC3339Nano),
			Count:  len(events),
			Events: events,
		}
	}
}
