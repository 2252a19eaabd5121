package app

import (
	"sync"

	"github.com/bft-labs/logjam/internal/domain"
	"github.com/bft-labs/logjam/internal/ports"
)

// ChangeKind describes what happened to a key in the store.
type ChangeKind int

const (
	ChangeRegister ChangeKind = iota
	ChangeAppend
	ChangeSendStart
	ChangeSendDone
	ChangeClear
	ChangePause
)

// String returns a human-readable representation of the kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeRegister:
		return "register"
	case ChangeAppend:
		return "append"
	case ChangeSendStart:
		return "send_start"
	case ChangeSendDone:
		return "send_done"
	case ChangeClear:
		return "clear"
	case ChangePause:
		return "pause"
	default:
		return "unknown"
	}
}

// Change is delivered to subscribers after the store mutated.
type Change struct {
	Key  domain.Key
	Kind ChangeKind
}

// AppendResult reports how Store.Append routed an event.
type AppendResult struct {
	// Accepted is false when the key is jammed for logging
	Accepted bool

	// Staged is true when the event went to the staging half
	Staged bool

	// ActiveLen is the active half length after the append
	ActiveLen int
}

// Store is the keyed state shared by controllers and orchestrators: the key
// registry, each key's buffer pair and sender state, the paused set, and key
// ownership. A single mutex guards all of it, so routing an append and
// switching a key to Sending can never interleave.
type Store struct {
	mu      sync.Mutex
	buffers map[domain.Key]*bufferPair
	keys    []domain.Key
	paused  map[domain.Key]domain.Capability
	owners  map[domain.Key]*Controller

	subMu   sync.RWMutex
	subs    map[int]func(Change)
	nextSub int

	logger ports.Logger
}

// NewStore creates an empty store.
func NewStore(logger ports.Logger) *Store {
	if logger == nil {
		logger = ports.NewNoopLogger()
	}
	return &Store{
		buffers: make(map[domain.Key]*bufferPair),
		paused:  make(map[domain.Key]domain.Capability),
		owners:  make(map[domain.Key]*Controller),
		subs:    make(map[int]func(Change)),
		logger:  logger,
	}
}

// Subscribe registers fn to be called after every mutation. Callbacks run on
// the mutating goroutine outside the store lock and must not block.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Change)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(changes ...Change) {
	if len(changes) == 0 {
		return
	}
	s.subMu.RLock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.RUnlock()

	for _, c := range changes {
		for _, fn := range fns {
			fn(c)
		}
	}
}

// pair returns the buffer pair for k, registering k on first use.
// Caller must hold s.mu.
func (s *Store) pair(k domain.Key) (*bufferPair, bool) {
	if b, ok := s.buffers[k]; ok {
		return b, false
	}
	b := &bufferPair{}
	s.buffers[k] = b
	s.keys = append(s.keys, k)
	return b, true
}

// Register adds keys to the registry. Known keys are ignored.
// It returns the keys that were newly added.
func (s *Store) Register(keys ...domain.Key) []domain.Key {
	s.mu.Lock()
	var added []domain.Key
	for _, k := range keys {
		if _, created := s.pair(k); created {
			added = append(added, k)
		}
	}
	s.mu.Unlock()

	changes := make([]Change, 0, len(added))
	for _, k := range added {
		changes = append(changes, Change{Key: k, Kind: ChangeRegister})
	}
	s.notify(changes...)
	return added
}

// Keys returns every registered key in registration order.
func (s *Store) Keys() []domain.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Key, len(s.keys))
	copy(out, s.keys)
	return out
}

// Known reports whether k is registered.
func (s *Store) Known(k domain.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.buffers[k]
	return ok
}

// Append routes e to the active or staging half of k. Events for a key jammed
// for logging are rejected.
func (s *Store) Append(k domain.Key, e domain.Event) AppendResult {
	s.mu.Lock()
	if s.paused[k].Has(domain.CapLogging) {
		s.mu.Unlock()
		return AppendResult{}
	}
	b, created := s.pair(k)
	staged := b.append(e)
	res := AppendResult{Accepted: true, Staged: staged, ActiveLen: len(b.active)}
	s.mu.Unlock()

	if created {
		s.notify(Change{Key: k, Kind: ChangeRegister}, Change{Key: k, Kind: ChangeAppend})
	} else {
		s.notify(Change{Key: k, Kind: ChangeAppend})
	}
	return res
}

// ReadAll returns active followed by staging for k.
func (s *Store) ReadAll(k domain.Key) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buffers[k]
	if !ok {
		return []domain.Event{}
	}
	return b.all()
}

// ActiveLen returns the number of events in the active half of k.
func (s *Store) ActiveLen(k domain.Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buffers[k]; ok {
		return len(b.active)
	}
	return 0
}

// Clear empties both halves of each key. Sender state and registration are kept.
func (s *Store) Clear(keys ...domain.Key) {
	s.mu.Lock()
	changes := make([]Change, 0, len(keys))
	for _, k := range keys {
		if b, ok := s.buffers[k]; ok {
			b.clear()
			changes = append(changes, Change{Key: k, Kind: ChangeClear})
		}
	}
	s.mu.Unlock()
	s.notify(changes...)
}

// Trim drops the oldest events of k until at most keep remain and returns
// the number dropped. A send in flight keeps its snapshot.
func (s *Store) Trim(k domain.Key, keep int) int {
	s.mu.Lock()
	b, ok := s.buffers[k]
	if !ok {
		s.mu.Unlock()
		return 0
	}
	dropped := b.trim(keep)
	s.mu.Unlock()

	if dropped > 0 {
		s.notify(Change{Key: k, Kind: ChangeClear})
	}
	return dropped
}

// Len returns the total number of buffered events of k.
func (s *Store) Len(k domain.Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buffers[k]; ok {
		return len(b.active) + len(b.staging)
	}
	return 0
}

// State returns the sender state of k.
func (s *Store) State(k domain.Key) domain.SenderState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buffers[k]; ok {
		return b.state
	}
	return domain.Idle
}

// InFlight returns the number of sends in progress for k.
func (s *Store) InFlight(k domain.Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buffers[k]; ok {
		return b.inflight
	}
	return 0
}

// sendTicket identifies a send started by beginSend.
type sendTicket struct {
	events []domain.Event
	end    int
}

// beginSend checks the guards and, when they pass, snapshots the active half
// and moves k to Sending in one step.
func (s *Store) beginSend(k domain.Key, override bool) (sendTicket, RejectReason) {
	s.mu.Lock()
	if s.paused[k].Has(domain.CapSending) {
		s.mu.Unlock()
		return sendTicket{}, RejectPaused
	}
	b, created := s.pair(k)
	if b.state == domain.Sending && !override {
		s.mu.Unlock()
		return sendTicket{}, RejectInFlight
	}
	snapshot, end := b.begin()
	s.mu.Unlock()

	if created {
		s.notify(Change{Key: k, Kind: ChangeRegister})
	}
	s.notify(Change{Key: k, Kind: ChangeSendStart})
	return sendTicket{events: snapshot, end: end}, RejectNone
}

// finishSend completes the send identified by t.
func (s *Store) finishSend(k domain.Key, t sendTicket, success bool) {
	s.mu.Lock()
	if b, ok := s.buffers[k]; ok {
		b.finish(success, t.end)
	}
	s.mu.Unlock()
	s.notify(Change{Key: k, Kind: ChangeSendDone})
}

// Jam adds caps to each key's paused capabilities. Keys that are not
// registered are dropped; the keys actually jammed are returned.
func (s *Store) Jam(keys []domain.Key, caps domain.Capability) []domain.Key {
	if caps == 0 {
		return nil
	}
	s.mu.Lock()
	var jammed []domain.Key
	for _, k := range keys {
		if _, ok := s.buffers[k]; !ok {
			continue
		}
		s.paused[k] |= caps
		jammed = append(jammed, k)
	}
	s.mu.Unlock()

	changes := make([]Change, 0, len(jammed))
	for _, k := range jammed {
		changes = append(changes, Change{Key: k, Kind: ChangePause})
	}
	s.notify(changes...)
	return jammed
}

// Drive removes keys from the paused set. With no keys the set is emptied.
func (s *Store) Drive(keys ...domain.Key) {
	s.mu.Lock()
	var driven []domain.Key
	if len(keys) == 0 {
		for k := range s.paused {
			driven = append(driven, k)
		}
		s.paused = make(map[domain.Key]domain.Capability)
	} else {
		for _, k := range keys {
			if _, ok := s.paused[k]; ok {
				delete(s.paused, k)
				driven = append(driven, k)
			}
		}
	}
	s.mu.Unlock()

	changes := make([]Change, 0, len(driven))
	for _, k := range driven {
		changes = append(changes, Change{Key: k, Kind: ChangePause})
	}
	s.notify(changes...)
}

// Release removes caps from each key's paused capabilities, dropping keys
// left with none. It returns the keys whose capabilities changed.
func (s *Store) Release(keys []domain.Key, caps domain.Capability) []domain.Key {
	if caps == 0 || len(keys) == 0 {
		return nil
	}
	s.mu.Lock()
	var released []domain.Key
	for _, k := range keys {
		cur, ok := s.paused[k]
		if !ok || cur&caps == 0 {
			continue
		}
		if rest := cur &^ caps; rest == 0 {
			delete(s.paused, k)
		} else {
			s.paused[k] = rest
		}
		released = append(released, k)
	}
	s.mu.Unlock()

	changes := make([]Change, 0, len(released))
	for _, k := range released {
		changes = append(changes, Change{Key: k, Kind: ChangePause})
	}
	s.notify(changes...)
	return released
}

// Paused returns the jammed capabilities of k.
func (s *Store) Paused(k domain.Key) domain.Capability {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused[k]
}

// PausedSet returns a copy of the paused set.
func (s *Store) PausedSet() map[domain.Key]domain.Capability {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.Key]domain.Capability, len(s.paused))
	for k, c := range s.paused {
		out[k] = c
	}
	return out
}

// claim makes c the owner of k. A live owner other than c causes ErrKeyOwned.
func (s *Store) claim(k domain.Key, c *Controller) error {
	s.mu.Lock()
	if owner, ok := s.owners[k]; ok && owner != c {
		s.mu.Unlock()
		return domain.ErrKeyOwned
	}
	_, created := s.pair(k)
	s.owners[k] = c
	s.mu.Unlock()

	if created {
		s.notify(Change{Key: k, Kind: ChangeRegister})
	}
	return nil
}

// release drops c's ownership of k.
func (s *Store) release(k domain.Key, c *Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owners[k] == c {
		delete(s.owners, k)
	}
}

// Owner returns the live main controller for k, if any.
func (s *Store) Owner(k domain.Key) (*Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.owners[k]
	return c, ok
}
