package app

import "github.com/bft-labs/logjam/internal/domain"

// bufferPair is the per-key double buffer. New appends go to active while the
// key is Idle and to staging while a send is in flight. It is not safe for
// concurrent use; Store serializes access.
type bufferPair struct {
	active  []domain.Event
	staging []domain.Event
	state   domain.SenderState

	// inflight counts sends in progress; overrides may push it above one
	inflight int

	// base is the position of active[0] among every event that has entered
	// active, so a finishing send can tell which of its events remain
	base int
}

// append routes e by sender state and reports whether it was staged.
func (b *bufferPair) append(e domain.Event) (staged bool) {
	if b.state == domain.Sending {
		b.staging = append(b.staging, e)
		return true
	}
	b.active = append(b.active, e)
	return false
}

// all returns active followed by staging as a fresh slice.
func (b *bufferPair) all() []domain.Event {
	out := make([]domain.Event, 0, len(b.active)+len(b.staging))
	out = append(out, b.active...)
	return append(out, b.staging...)
}

func (b *bufferPair) clear() {
	b.base += len(b.active)
	b.active = nil
	b.staging = nil
}

// trim drops the oldest events until at most keep remain, taking from active
// before staging. It returns how many were dropped.
func (b *bufferPair) trim(keep int) int {
	if keep < 0 {
		keep = 0
	}
	total := len(b.active) + len(b.staging)
	drop := total - keep
	if drop <= 0 {
		return 0
	}
	if drop <= len(b.active) {
		b.active = append([]domain.Event(nil), b.active[drop:]...)
		b.base += drop
		return drop
	}
	rest := drop - len(b.active)
	b.base += len(b.active)
	b.active = nil
	b.staging = append([]domain.Event(nil), b.staging[rest:]...)
	return drop
}

// begin snapshots active and marks the key Sending. The returned end is the
// position just past the snapshot's last event.
func (b *bufferPair) begin() (snapshot []domain.Event, end int) {
	snapshot = make([]domain.Event, len(b.active))
	copy(snapshot, b.active)
	b.state = domain.Sending
	b.inflight++
	return snapshot, b.base + len(b.active)
}

// finish completes the send whose snapshot ended at end. On success the
// snapshot's events still in active are dropped. On failure nothing is
// dropped. Once the last send is done staging is folded onto active, so with
// a single send a success leaves exactly the staged events.
func (b *bufferPair) finish(success bool, end int) {
	if success {
		if drop := min(end-b.base, len(b.active)); drop > 0 {
			b.active = append([]domain.Event(nil), b.active[drop:]...)
			b.base += drop
		}
	}
	if b.inflight > 0 {
		b.inflight--
	}
	if b.inflight == 0 {
		b.state = domain.Idle
		if len(b.staging) > 0 {
			b.active = append(b.active, b.staging...)
			b.staging = nil
		}
	}
}
