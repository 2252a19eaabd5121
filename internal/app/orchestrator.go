package app

import (
	"context"
	"sync"

	"github.com/bft-labs/logjam/internal/domain"
	"github.com/bft-labs/logjam/internal/ports"
)

// Orchestrator applies bulk operations over a set of keys. An orchestrator
// created without keys tracks every key known to the store, evaluated at the
// time of each call.
type Orchestrator struct {
	store  *Store
	logger ports.Logger

	mu      sync.RWMutex
	tracked []domain.Key
	scoped  bool
}

// FlushResult is the per-key result of a flush.
type FlushResult struct {
	Key domain.Key

	// Outcome is set when a send was performed
	Outcome *Outcome

	// Rejected is set when no send was performed
	Rejected RejectReason

	// Err is set when waiting for the outcome was cut short by the context
	Err error
}

// View is the orchestrator query surface.
type View struct {
	Keys   []domain.Key
	Logs   map[domain.Key][]domain.Event
	Paused []domain.Key
	Active []domain.Key
}

// NewOrchestrator creates an orchestrator over keys, registering them.
// With no keys it tracks all keys in the store.
func NewOrchestrator(store *Store, logger ports.Logger, keys ...domain.Key) *Orchestrator {
	if logger == nil {
		logger = ports.NewNoopLogger()
	}
	o := &Orchestrator{
		store:  store,
		logger: ports.With(logger, ports.String("component", "orchestrator")),
	}
	if len(keys) > 0 {
		o.scoped = true
		o.addTracked(keys)
		store.Register(keys...)
	}
	return o
}

func (o *Orchestrator) addTracked(keys []domain.Key) {
	o.mu.Lock()
	defer o.mu.Unlock()
	seen := make(map[domain.Key]struct{}, len(o.tracked))
	for _, k := range o.tracked {
		seen[k] = struct{}{}
	}
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		o.tracked = append(o.tracked, k)
	}
}

// Keys returns the keys this orchestrator currently tracks.
func (o *Orchestrator) Keys() []domain.Key {
	o.mu.RLock()
	scoped := o.scoped
	out := make([]domain.Key, len(o.tracked))
	copy(out, o.tracked)
	o.mu.RUnlock()

	if !scoped {
		return o.store.Keys()
	}
	return out
}

// RegisterKeys adds keys to the registry and to this orchestrator's tracked set.
// Known keys are a no-op.
func (o *Orchestrator) RegisterKeys(keys ...domain.Key) {
	if len(keys) == 0 {
		return
	}
	o.store.Register(keys...)
	o.mu.RLock()
	scoped := o.scoped
	o.mu.RUnlock()
	if scoped {
		o.addTracked(keys)
	}
}

// Jam pauses the given capabilities (default: logging and sending) for keys.
//
// Keys are first intersected with the registry: a key that has never been
// registered cannot be jammed and is dropped. The keys actually jammed are
// returned so callers can detect dropped ones. An empty list is a no-op.
func (o *Orchestrator) Jam(keys []domain.Key, caps ...domain.Capability) []domain.Key {
	if len(keys) == 0 {
		return nil
	}
	c := combine(caps)
	jammed := o.store.Jam(keys, c)
	if len(jammed) != len(keys) {
		o.logger.Debug("jam dropped unregistered keys",
			ports.Strings("requested", keyStrings(keys)),
			ports.Strings("jammed", keyStrings(jammed)),
		)
	}
	o.logger.Info("jammed keys", ports.Strings("keys", keyStrings(jammed)), ports.Stringer("capabilities", c))
	return jammed
}

// JamAll pauses the given capabilities for every tracked key.
func (o *Orchestrator) JamAll(caps ...domain.Capability) []domain.Key {
	return o.Jam(o.Keys(), caps...)
}

// Drive resumes keys. With no keys the paused set is emptied, including keys
// that were never jammed through this orchestrator.
func (o *Orchestrator) Drive(keys ...domain.Key) {
	o.store.Drive(keys...)
	if len(keys) == 0 {
		o.logger.Info("drove all keys")
		return
	}
	o.logger.Info("drove keys", ports.Strings("keys", keyStrings(keys)))
}

// Release lifts only caps from keys, leaving any other jammed capability in
// place. It returns the keys whose pause changed.
func (o *Orchestrator) Release(keys []domain.Key, caps ...domain.Capability) []domain.Key {
	c := combine(caps)
	released := o.store.Release(keys, c)
	if len(released) > 0 {
		o.logger.Info("released keys", ports.Strings("keys", keyStrings(released)), ports.Stringer("capabilities", c))
	}
	return released
}

// Paused returns the jammed capabilities of k; zero means k is not paused.
func (o *Orchestrator) Paused(k domain.Key) domain.Capability {
	return o.store.Paused(k)
}

// Clear empties buffers of keys, or of every tracked key when none are given.
func (o *Orchestrator) Clear(keys ...domain.Key) {
	if len(keys) == 0 {
		keys = o.Keys()
	}
	o.store.Clear(keys...)
}

// Prune trims every key (every tracked key when none are given) holding more
// than high events down to low, dropping the oldest. It returns the number of
// events dropped per pruned key.
func (o *Orchestrator) Prune(high, low int, keys ...domain.Key) map[domain.Key]int {
	if len(keys) == 0 {
		keys = o.Keys()
	}
	pruned := make(map[domain.Key]int)
	for _, k := range keys {
		if o.store.Len(k) <= high {
			continue
		}
		if n := o.store.Trim(k, low); n > 0 {
			pruned[k] = n
			o.logger.Warn("pruned buffered events",
				ports.String("key", string(k)),
				ports.Int("dropped", n),
			)
		}
	}
	return pruned
}

// ReadAggregate returns active+staging events for keys (every tracked key
// when none are given). It is recomputed on every call.
func (o *Orchestrator) ReadAggregate(keys ...domain.Key) map[domain.Key][]domain.Event {
	if len(keys) == 0 {
		keys = o.Keys()
	}
	out := make(map[domain.Key][]domain.Event, len(keys))
	for _, k := range keys {
		out[k] = o.store.ReadAll(k)
	}
	return out
}

// Flush triggers a send on the main controller of each key (every tracked key
// when none are given) and waits for the outcomes. Keys without a live main
// controller report RejectNoSender.
func (o *Orchestrator) Flush(ctx context.Context, keys ...domain.Key) []FlushResult {
	if len(keys) == 0 {
		keys = o.Keys()
	}
	return o.flush(ctx, keys, SkipEmpty())
}

func (o *Orchestrator) flush(ctx context.Context, keys []domain.Key, opts ...TriggerOption) []FlushResult {
	results := make([]FlushResult, len(keys))
	dispatches := make([]*Dispatch, len(keys))

	for i, k := range keys {
		results[i].Key = k
		c, ok := o.store.Owner(k)
		if !ok {
			results[i].Rejected = RejectNoSender
			continue
		}
		d, reason := c.Trigger(ctx, opts...)
		if reason != RejectNone {
			results[i].Rejected = reason
			continue
		}
		dispatches[i] = d
	}

	for i, d := range dispatches {
		if d == nil {
			continue
		}
		out, err := d.Wait(ctx)
		if err != nil {
			results[i].Err = err
			continue
		}
		results[i].Outcome = &out
	}
	return results
}

// Logout ends the session for every tracked key.
//
// With unloadAll a final flush of every key is attempted (overriding the
// in-flight guard, without retries) and buffers are cleared afterwards
// whatever the outcome. Without it every key is jammed and cleared
// immediately, with nothing sent.
func (o *Orchestrator) Logout(ctx context.Context, unloadAll bool) []FlushResult {
	keys := o.Keys()
	var results []FlushResult
	if unloadAll {
		results = o.flush(ctx, keys, WithOverride(), SkipEmpty())
		for _, r := range results {
			if r.Outcome != nil && !r.Outcome.Success {
				o.logger.Warn("final flush failed, events dropped",
					ports.String("key", string(r.Key)),
					ports.Int("count", r.Outcome.Count),
					ports.Err(r.Outcome.Err),
				)
			}
		}
	} else {
		o.Jam(keys)
	}
	o.store.Clear(keys...)
	o.logger.Info("logout", ports.Int("keys", len(keys)), ports.Bool("unload_all", unloadAll))
	return results
}

// View returns the tracked keys, their merged logs, and which are paused.
func (o *Orchestrator) View() View {
	keys := o.Keys()
	paused := o.store.PausedSet()
	v := View{
		Keys:   keys,
		Logs:   o.ReadAggregate(keys...),
		Paused: []domain.Key{},
		Active: []domain.Key{},
	}
	for _, k := range keys {
		if paused[k] != 0 {
			v.Paused = append(v.Paused, k)
		} else {
			v.Active = append(v.Active, k)
		}
	}
	return v
}

func combine(caps []domain.Capability) domain.Capability {
	if len(caps) == 0 {
		return domain.CapAll
	}
	var c domain.Capability
	for _, x := range caps {
		c |= x
	}
	return c
}

func keyStrings(keys []domain.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
