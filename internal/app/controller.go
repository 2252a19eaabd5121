package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/logjam/internal/domain"
	"github.com/bft-labs/logjam/internal/ports"
)

// Default controller configuration values.
const (
	DefaultPendingSendMax = 5
	DefaultTimeInterval   = 15 * time.Second
)

// ControllerConfig configures a per-key dispatch controller.
type ControllerConfig struct {
	Key domain.Key

	// Sender delivers batches. Required for a main instance.
	Sender ports.Sender

	// Prep transforms a batch before sending. Defaults to identity.
	Prep ports.PrepFunc

	// ActiveSending enables sends; when false only overriding triggers send.
	ActiveSending bool

	// PendingSendMax is the active-buffer length that triggers a send.
	PendingSendMax int

	// TimeInterval is the period of the timer check.
	TimeInterval time.Duration
}

// DefaultControllerConfig returns a ControllerConfig with default values.
func DefaultControllerConfig(key domain.Key) ControllerConfig {
	return ControllerConfig{
		Key:            key,
		ActiveSending:  true,
		PendingSendMax: DefaultPendingSendMax,
		TimeInterval:   DefaultTimeInterval,
	}
}

// TriggerOption customizes a single Trigger call.
type TriggerOption func(*triggerOptions)

type triggerOptions struct {
	override  bool
	sender    ports.Sender
	prep      ports.PrepFunc
	skipEmpty bool
	reason    string
}

// WithOverride bypasses the in-flight and active-sending guards.
// The pause guard still applies.
func WithOverride() TriggerOption {
	return func(o *triggerOptions) { o.override = true }
}

// WithSender uses s for this trigger instead of the configured sender.
func WithSender(s ports.Sender) TriggerOption {
	return func(o *triggerOptions) { o.sender = s }
}

// WithPrep uses p for this trigger instead of the configured prep function.
func WithPrep(p ports.PrepFunc) TriggerOption {
	return func(o *triggerOptions) { o.prep = p }
}

// SkipEmpty rejects the trigger when the active buffer is empty.
func SkipEmpty() TriggerOption {
	return func(o *triggerOptions) { o.skipEmpty = true }
}

// Controller dispatches one key's events. A main instance has a sender, a
// threshold check after every append, and a periodic timer; a simple instance
// only accumulates events for manual handling.
type Controller struct {
	key        domain.Key
	store      *Store
	normalizer *Normalizer
	logger     ports.Logger
	emitter    SendEventEmitter

	mu     sync.Mutex
	cfg    ControllerConfig
	main   bool
	closed bool
	errs   []error

	timerStop chan struct{}
	timerDone chan struct{}

	inflight sync.WaitGroup
}

// NewController creates a main controller for cfg.Key and starts its timer.
//
// Configuration problems never fail construction. They are collected in
// Errors() and the controller degrades: a missing sender or a key already
// owned by another live main controller yields a simple instance.
func NewController(cfg ControllerConfig, store *Store, normalizer *Normalizer, logger ports.Logger, emitter SendEventEmitter) *Controller {
	c := newController(cfg.Key, store, normalizer, logger, emitter)

	cfg, errs := c.sanitize(cfg, nil)
	c.cfg = cfg
	c.main = cfg.Sender != nil
	if cfg.Sender == nil {
		errs = append(errs, &domain.ConfigError{Field: "Sender", Reason: "main instance requires a sender, running as simple instance", Err: domain.ErrNoSender})
	}
	if c.main {
		if err := store.claim(c.key, c); err != nil {
			errs = append(errs, &domain.ConfigError{Field: "Key", Reason: "running as simple instance", Err: err})
			c.main = false
		}
	}
	c.recordErrors(errs)

	if c.main {
		c.mu.Lock()
		c.startTimerLocked(cfg.TimeInterval)
		c.mu.Unlock()
	}
	return c
}

// NewSimpleController creates a controller that only accumulates events.
// Manual triggers with a one-off sender are still possible.
func NewSimpleController(key domain.Key, store *Store, normalizer *Normalizer, logger ports.Logger) *Controller {
	c := newController(key, store, normalizer, logger, nil)
	c.cfg, _ = c.sanitize(DefaultControllerConfig(key), nil)
	store.Register(c.key)
	return c
}

func newController(key domain.Key, store *Store, normalizer *Normalizer, logger ports.Logger, emitter SendEventEmitter) *Controller {
	if key == "" {
		key = domain.DefaultKey
	}
	if logger == nil {
		logger = ports.NewNoopLogger()
	}
	if normalizer == nil {
		normalizer = NewNormalizer(NormalizerConfig{})
	}
	return &Controller{
		key:        key,
		store:      store,
		normalizer: normalizer,
		logger:     ports.With(logger, ports.String("key", string(key))),
		emitter:    emitter,
	}
}

// sanitize fills zero values with defaults and replaces invalid values.
// prev, when set, supplies the fallback sender for a reconfiguration.
func (c *Controller) sanitize(cfg ControllerConfig, prev *ControllerConfig) (ControllerConfig, []error) {
	var errs []error
	cfg.Key = c.key

	switch {
	case cfg.PendingSendMax == 0:
		cfg.PendingSendMax = DefaultPendingSendMax
	case cfg.PendingSendMax < 0:
		errs = append(errs, &domain.ConfigError{Field: "PendingSendMax", Reason: fmt.Sprintf("%d is not positive, using %d", cfg.PendingSendMax, DefaultPendingSendMax)})
		cfg.PendingSendMax = DefaultPendingSendMax
	}

	switch {
	case cfg.TimeInterval == 0:
		cfg.TimeInterval = DefaultTimeInterval
	case cfg.TimeInterval < 0:
		errs = append(errs, &domain.ConfigError{Field: "TimeInterval", Reason: fmt.Sprintf("%v is not positive, using %v", cfg.TimeInterval, DefaultTimeInterval)})
		cfg.TimeInterval = DefaultTimeInterval
	}

	if cfg.Prep == nil {
		cfg.Prep = ports.IdentityPrep
	}
	if prev != nil && cfg.Sender == nil {
		errs = append(errs, &domain.ConfigError{Field: "Sender", Reason: "cannot remove the sender of a main instance, keeping the previous one", Err: domain.ErrNoSender})
		cfg.Sender = prev.Sender
	}
	return cfg, errs
}

func (c *Controller) recordErrors(errs []error) {
	if len(errs) == 0 {
		return
	}
	c.mu.Lock()
	c.errs = append(c.errs, errs...)
	c.mu.Unlock()

	ce, _ := c.emitter.(ConfigErrorEmitter)
	for _, err := range errs {
		c.logger.Warn("configuration error", ports.Err(err))
		if ce != nil {
			ce.OnConfigError(c.key, err)
		}
	}
}

// Key returns the controller's key.
func (c *Controller) Key() domain.Key {
	return c.key
}

// IsMain reports whether this is a main instance with a sender and timer.
func (c *Controller) IsMain() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.main
}

// Config returns the effective configuration.
func (c *Controller) Config() ControllerConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Errors returns the configuration errors collected so far.
func (c *Controller) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]error, len(c.errs))
	copy(out, c.errs)
	return out
}

// Log normalizes raw and appends it to the key's buffer. It returns false when
// the key is jammed for logging. On a main instance an append that brings the
// active buffer to PendingSendMax triggers a send.
func (c *Controller) Log(raw any) (domain.Event, bool) {
	e := c.normalizer.Normalize(raw)

	res := c.store.Append(c.key, e)
	if !res.Accepted {
		c.logger.Debug("event rejected, key jammed for logging", ports.String("code", e.Code))
		return e, false
	}

	c.mu.Lock()
	auto := c.main && !c.closed && !res.Staged && res.ActiveLen >= c.cfg.PendingSendMax
	c.mu.Unlock()

	if auto {
		c.autoTrigger("threshold")
	}
	return e, true
}

// Events returns the key's active and staged events.
func (c *Controller) Events() []domain.Event {
	return c.store.ReadAll(c.key)
}

// Clear empties the key's buffers.
func (c *Controller) Clear() {
	c.store.Clear(c.key)
}

// State returns the key's sender state.
func (c *Controller) State() domain.SenderState {
	return c.store.State(c.key)
}

// Trigger starts a send of the active buffer. It returns false with a reason
// when a guard rejects the send: the key is already sending (without
// override), jammed for sending, active sending is disabled (without
// override), or no sender is available.
func (c *Controller) Trigger(ctx context.Context, opts ...TriggerOption) (*Dispatch, RejectReason) {
	var o triggerOptions
	for _, opt := range opts {
		opt(&o)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	closed, main, cfg := c.closed, c.main, c.cfg
	c.mu.Unlock()

	sender := o.sender
	if sender == nil && main {
		sender = cfg.Sender
	}
	prep := o.prep
	if prep == nil {
		prep = cfg.Prep
	}

	var reason RejectReason
	switch {
	case closed:
		reason = RejectClosed
	case sender == nil:
		reason = RejectNoSender
	case !cfg.ActiveSending && !o.override:
		reason = RejectInactive
	case o.skipEmpty && c.store.ActiveLen(c.key) == 0:
		reason = RejectEmpty
	}
	if reason != RejectNone {
		c.logger.Debug("trigger rejected", ports.String("reason", string(reason)))
		return nil, reason
	}

	ticket, reason := c.store.beginSend(c.key, o.override)
	if reason != RejectNone {
		c.logger.Debug("trigger rejected", ports.String("reason", string(reason)))
		return nil, reason
	}

	d := newDispatch(c.key)
	c.inflight.Add(1)
	// ctx carries values to the sender; cancelling it does not abort the send
	go c.run(context.WithoutCancel(ctx), d, sender, prep, ticket, o.reason)
	return d, RejectNone
}

func (c *Controller) autoTrigger(reason string) {
	opts := []TriggerOption{func(o *triggerOptions) { o.reason = reason }}
	if reason == "timer" {
		opts = append(opts, SkipEmpty())
	}
	c.Trigger(context.Background(), opts...)
}

// run performs the send and resolves d.
func (c *Controller) run(ctx context.Context, d *Dispatch, sender ports.Sender, prep ports.PrepFunc, ticket sendTicket, reason string) {
	defer c.inflight.Done()
	snapshot := ticket.events

	start := time.Now()
	resp, err := c.send(ctx, sender, prep, snapshot)
	duration := time.Since(start)

	success := err == nil && resp.Success
	if err == nil && !resp.Success {
		err = domain.ErrSendRejected
	}
	c.store.finishSend(c.key, ticket, success)

	if success {
		c.logger.Info("sent batch",
			ports.Int("count", len(snapshot)),
			ports.Duration("duration", duration),
			ports.String("trigger", triggerName(reason)),
		)
		if c.emitter != nil {
			c.emitter.OnSendSuccess(c.key, len(snapshot), duration)
		}
	} else {
		c.logger.Error("send failed",
			ports.Err(err),
			ports.Int("count", len(snapshot)),
			ports.String("trigger", triggerName(reason)),
		)
		if c.emitter != nil {
			c.emitter.OnSendError(c.key, err, len(snapshot))
		}
	}

	d.resolve(Outcome{
		Key:      c.key,
		Success:  success,
		Count:    len(snapshot),
		Response: resp,
		Err:      err,
		Duration: duration,
	})
}

// send runs prep and the sender, turning a panic in either into an error.
func (c *Controller) send(ctx context.Context, sender ports.Sender, prep ports.PrepFunc, snapshot []domain.Event) (resp ports.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("logjam: send panicked: %v", r)
		}
	}()
	payload := prep(snapshot)
	return sender.Send(ctx, ports.Batch{Key: c.key, Events: snapshot, Payload: payload})
}

func triggerName(reason string) string {
	if reason == "" {
		return "manual"
	}
	return reason
}

// Reconfigure replaces the configuration of a live controller and restarts
// its timer. A simple instance stays simple.
func (c *Controller) Reconfigure(cfg ControllerConfig) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	prev := c.cfg
	var errs []error
	if c.main {
		cfg, errs = c.sanitize(cfg, &prev)
	} else {
		cfg, errs = c.sanitize(cfg, nil)
		cfg.Sender = nil
	}
	c.cfg = cfg

	var done chan struct{}
	if c.main {
		done = c.startTimerLocked(cfg.TimeInterval)
	}
	c.mu.Unlock()

	if done != nil {
		<-done
	}
	c.recordErrors(errs)
}

// startTimerLocked cancels the running timer, if any, and starts a new one.
// It returns the previous timer's done channel so the caller can wait for it
// after releasing c.mu. Caller must hold c.mu.
func (c *Controller) startTimerLocked(interval time.Duration) chan struct{} {
	prevDone := c.stopTimerLocked()

	stop := make(chan struct{})
	done := make(chan struct{})
	c.timerStop, c.timerDone = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.autoTrigger("timer")
			}
		}
	}()
	return prevDone
}

// stopTimerLocked signals the running timer to stop. Caller must hold c.mu.
func (c *Controller) stopTimerLocked() chan struct{} {
	if c.timerStop == nil {
		return nil
	}
	close(c.timerStop)
	done := c.timerDone
	c.timerStop, c.timerDone = nil, nil
	return done
}

// Close stops the timer and releases key ownership. Sends already in flight
// run to completion; use WaitIdle to wait for them. Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	done := c.stopTimerLocked()
	main := c.main
	c.mu.Unlock()

	if done != nil {
		<-done
	}
	if main {
		c.store.release(c.key, c)
	}
}

// WaitIdle blocks until this controller has no send in flight or ctx is done.
func (c *Controller) WaitIdle(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
