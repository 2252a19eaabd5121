package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/logjam/internal/domain"
	"github.com/bft-labs/logjam/internal/ports"
)

// RejectReason explains why a trigger was not performed.
// Rejections are routine outcomes, not errors.
type RejectReason string

const (
	RejectNone     RejectReason = ""
	RejectInFlight RejectReason = "send in flight"
	RejectPaused   RejectReason = "jammed for sending"
	RejectNoSender RejectReason = "no sender configured"
	RejectInactive RejectReason = "active sending disabled"
	RejectClosed   RejectReason = "controller closed"
	RejectEmpty    RejectReason = "nothing to send"
)

// Err converts r into an error. RejectNone yields nil.
func (r RejectReason) Err() error {
	switch r {
	case RejectNone:
		return nil
	case RejectClosed:
		return domain.ErrControllerClosed
	case RejectNoSender:
		return domain.ErrNoSender
	default:
		return fmt.Errorf("logjam: trigger rejected: %s", string(r))
	}
}

// Outcome is the resolved result of a performed send.
type Outcome struct {
	Key      domain.Key
	Success  bool
	Count    int
	Response ports.Response
	Err      error
	Duration time.Duration
}

// Dispatch is a send in progress. It resolves exactly once.
type Dispatch struct {
	key     domain.Key
	done    chan struct{}
	outcome Outcome
}

func newDispatch(k domain.Key) *Dispatch {
	return &Dispatch{key: k, done: make(chan struct{})}
}

// Key returns the key being sent.
func (d *Dispatch) Key() domain.Key {
	return d.key
}

// Done is closed when the send has completed.
func (d *Dispatch) Done() <-chan struct{} {
	return d.done
}

// Outcome returns the result. It is only meaningful after Done is closed.
func (d *Dispatch) Outcome() Outcome {
	<-d.done
	return d.outcome
}

// Wait blocks until the send completes or ctx is done. Canceling ctx does not
// cancel the send itself.
func (d *Dispatch) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-d.done:
		return d.outcome, nil
	case <-ctx.Done():
		return Outcome{Key: d.key}, ctx.Err()
	}
}

func (d *Dispatch) resolve(o Outcome) {
	d.outcome = o
	close(d.done)
}
