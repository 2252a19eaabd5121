package app

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bft-labs/logjam/internal/domain"
	"github.com/bft-labs/logjam/pkg/log"
)

func ev(code string) domain.Event {
	return domain.Event{Code: code}
}

func TestStore_AppendRoutesByState(t *testing.T) {
	s := NewStore(mockLogger{})

	s.Append("k", ev("a"))
	s.Append("k", ev("b"))

	ticket, reason := s.beginSend("k", false)
	if reason != RejectNone {
		t.Fatalf("beginSend rejected: %s", reason)
	}
	if diff := cmp.Diff([]string{"a", "b"}, codes(ticket.events)); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	res := s.Append("k", ev("c"))
	if !res.Staged || res.ActiveLen != 2 {
		t.Errorf("append while sending = %+v, want staged with 2 active", res)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, codes(s.ReadAll("k"))); diff != "" {
		t.Errorf("ReadAll mismatch (-want +got):\n%s", diff)
	}

	s.finishSend("k", ticket, true)

	if s.State("k") != domain.Idle {
		t.Errorf("state = %v after finish, want idle", s.State("k"))
	}
	if diff := cmp.Diff([]string{"c"}, codes(s.ReadAll("k"))); diff != "" {
		t.Errorf("after success (-want +got):\n%s", diff)
	}
	if s.ActiveLen("k") != 1 {
		t.Errorf("ActiveLen = %d, want staged event promoted to active", s.ActiveLen("k"))
	}
}

func TestStore_FailedSendKeepsBuffers(t *testing.T) {
	s := NewStore(nil)
	s.Append("k", ev("a"))
	ticket, _ := s.beginSend("k", false)
	s.Append("k", ev("b"))

	s.finishSend("k", ticket, false)

	if diff := cmp.Diff([]string{"a", "b"}, codes(s.ReadAll("k"))); diff != "" {
		t.Errorf("after failure (-want +got):\n%s", diff)
	}
	if s.ActiveLen("k") != 2 {
		t.Errorf("ActiveLen = %d, want staged event folded into active", s.ActiveLen("k"))
	}

	s.Append("k", ev("c"))
	if diff := cmp.Diff([]string{"a", "b", "c"}, codes(s.ReadAll("k"))); diff != "" {
		t.Errorf("append after failure (-want +got):\n%s", diff)
	}
}

// Overlapping sends each drop only their own snapshot; events staged
// between them survive until sent.
func TestStore_OverlappingSendsKeepUnsentEvents(t *testing.T) {
	s := NewStore(nil)
	s.Append("k", ev("1"))
	s.Append("k", ev("2"))

	first, _ := s.beginSend("k", false)
	s.Append("k", ev("3"))
	second, reason := s.beginSend("k", true)
	if reason != RejectNone {
		t.Fatalf("override beginSend rejected: %s", reason)
	}
	if diff := cmp.Diff([]string{"1", "2"}, codes(second.events)); diff != "" {
		t.Errorf("override snapshot (-want +got):\n%s", diff)
	}

	s.finishSend("k", first, true)
	s.Append("k", ev("4"))
	s.finishSend("k", second, true)

	if diff := cmp.Diff([]string{"3", "4"}, codes(s.ReadAll("k"))); diff != "" {
		t.Errorf("after both sends (-want +got):\n%s", diff)
	}
	if s.ActiveLen("k") != 2 {
		t.Errorf("ActiveLen = %d, want 2", s.ActiveLen("k"))
	}

	// a later send that finishes after a clear drops nothing new
	third, _ := s.beginSend("k", false)
	s.Clear("k")
	s.finishSend("k", third, true)
	s.Append("k", ev("5"))
	if diff := cmp.Diff([]string{"5"}, codes(s.ReadAll("k"))); diff != "" {
		t.Errorf("after clear (-want +got):\n%s", diff)
	}
}

func TestStore_BeginSendGuards(t *testing.T) {
	s := NewStore(nil)
	s.Register("k")

	first, reason := s.beginSend("k", false)
	if reason != RejectNone {
		t.Fatalf("first beginSend rejected: %s", reason)
	}
	if _, reason := s.beginSend("k", false); reason != RejectInFlight {
		t.Errorf("second beginSend = %q, want %q", reason, RejectInFlight)
	}
	second, reason := s.beginSend("k", true)
	if reason != RejectNone {
		t.Errorf("override beginSend = %q, want accepted", reason)
	}

	// two sends in flight: the key stays Sending until both finish
	s.finishSend("k", first, true)
	if s.State("k") != domain.Sending {
		t.Errorf("state = %v with one send left, want sending", s.State("k"))
	}
	s.finishSend("k", second, true)
	if s.State("k") != domain.Idle {
		t.Errorf("state = %v, want idle", s.State("k"))
	}

	s.Jam([]domain.Key{"k"}, domain.CapSending)
	if _, reason := s.beginSend("k", true); reason != RejectPaused {
		t.Errorf("beginSend on jammed key = %q, want %q", reason, RejectPaused)
	}
}

func TestStore_JamLogging(t *testing.T) {
	s := NewStore(nil)
	s.Append("k", ev("a"))

	jammed := s.Jam([]domain.Key{"k", "ghost"}, domain.CapLogging)

	if diff := cmp.Diff([]domain.Key{"k"}, jammed); diff != "" {
		t.Errorf("jammed mismatch (-want +got):\n%s", diff)
	}
	if res := s.Append("k", ev("b")); res.Accepted {
		t.Error("append accepted on a key jammed for logging")
	}
	if s.Known("ghost") {
		t.Error("jamming an unknown key must not register it")
	}

	s.Drive("k")
	if res := s.Append("k", ev("c")); !res.Accepted {
		t.Error("append rejected after drive")
	}
	if diff := cmp.Diff([]string{"a", "c"}, codes(s.ReadAll("k"))); diff != "" {
		t.Errorf("ReadAll mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_DriveAll(t *testing.T) {
	s := NewStore(nil)
	s.Register("a", "b")
	s.Jam([]domain.Key{"a", "b"}, domain.CapAll)

	s.Drive()

	if got := s.PausedSet(); len(got) != 0 {
		t.Errorf("PausedSet() = %v, want empty", got)
	}
}

func TestStore_RegisterAndKeys(t *testing.T) {
	s := NewStore(nil)

	added := s.Register("b", "a", "b")
	if diff := cmp.Diff([]domain.Key{"b", "a"}, added); diff != "" {
		t.Errorf("added mismatch (-want +got):\n%s", diff)
	}
	if added := s.Register("a"); len(added) != 0 {
		t.Errorf("re-registering returned %v", added)
	}
	s.Append("c", ev("x"))

	if diff := cmp.Diff([]domain.Key{"b", "a", "c"}, s.Keys()); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
	if got := s.ReadAll("missing"); got == nil || len(got) != 0 {
		t.Errorf("ReadAll(missing) = %v, want empty non-nil", got)
	}
}

func TestStore_ClearKeepsState(t *testing.T) {
	s := NewStore(nil)
	s.Append("k", ev("a"))
	s.beginSend("k", false)
	s.Append("k", ev("b"))

	s.Clear("k")

	if n := len(s.ReadAll("k")); n != 0 {
		t.Errorf("ReadAll after clear = %d events, want 0", n)
	}
	if s.State("k") != domain.Sending {
		t.Errorf("clear must not change sender state, got %v", s.State("k"))
	}
	if !s.Known("k") {
		t.Error("clear must keep the key registered")
	}
}

func TestStore_Subscribe(t *testing.T) {
	s := NewStore(nil)

	var mu sync.Mutex
	var got []Change
	cancel := s.Subscribe(func(c Change) {
		mu.Lock()
		got = append(got, c)
		mu.Unlock()
	})

	s.Append("k", ev("a"))
	s.Jam([]domain.Key{"k"}, domain.CapSending)
	s.Clear("k")
	cancel()
	s.Append("k", ev("b"))

	want := []Change{
		{Key: "k", Kind: ChangeRegister},
		{Key: "k", Kind: ChangeAppend},
		{Key: "k", Kind: ChangePause},
		{Key: "k", Kind: ChangeClear},
	}
	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("changes mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_ClaimOwnership(t *testing.T) {
	s := NewStore(nil)
	a, b := &Controller{}, &Controller{}

	if err := s.claim("k", a); err != nil {
		t.Fatalf("claim() = %v", err)
	}
	if err := s.claim("k", b); err != domain.ErrKeyOwned {
		t.Errorf("second claim = %v, want ErrKeyOwned", err)
	}
	if owner, _ := s.Owner("k"); owner != a {
		t.Error("owner changed after a rejected claim")
	}

	s.release("k", b)
	if _, ok := s.Owner("k"); !ok {
		t.Error("release by a non-owner dropped ownership")
	}
	s.release("k", a)
	if err := s.claim("k", b); err != nil {
		t.Errorf("claim after release = %v", err)
	}
}

func TestChangeKind_String(t *testing.T) {
	if got := ChangeSendDone.String(); got != "send_done" {
		t.Errorf("String() = %q, want send_done", got)
	}
	if got := ChangeKind(42).String(); got != "unknown" {
		t.Errorf("String() = %q, want unknown", got)
	}
}

func TestStore_ConcurrentAppend(t *testing.T) {
	s := NewStore(nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Append("k", ev("x"))
			}
		}()
	}
	wg.Wait()

	if n := len(s.ReadAll("k")); n != 400 {
		t.Errorf("ReadAll = %d events, want 400", n)
	}
}

func TestStore_Trim(t *testing.T) {
	tests := []struct {
		name        string
		active      []string
		staged      []string
		keep        int
		wantDropped int
		want        []string
	}{
		{"under limit", []string{"a"}, nil, 3, 0, []string{"a"}},
		{"from active", []string{"a", "b", "c"}, []string{"d"}, 2, 2, []string{"c", "d"}},
		{"into staging", []string{"a"}, []string{"b", "c"}, 1, 2, []string{"c"}},
		{"keep nothing", []string{"a"}, []string{"b"}, 0, 2, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(nil)
			s.Register("k")
			for _, c := range tt.active {
				s.Append("k", ev(c))
			}
			s.beginSend("k", false)
			for _, c := range tt.staged {
				s.Append("k", ev(c))
			}

			if got := s.Trim("k", tt.keep); got != tt.wantDropped {
				t.Errorf("Trim() = %d, want %d", got, tt.wantDropped)
			}
			if diff := cmp.Diff(tt.want, codes(s.ReadAll("k"))); diff != "" {
				t.Errorf("remaining mismatch (-want +got):\n%s", diff)
			}
			if s.Len("k") != len(tt.want) {
				t.Errorf("Len() = %d, want %d", s.Len("k"), len(tt.want))
			}
		})
	}
}

func TestStore_NilLoggerDiscards(t *testing.T) {
	if l := NewStore(nil).logger; l == nil {
		t.Fatal("logger = nil")
	} else if _, ok := l.(*log.NoopLogger); !ok {
		t.Errorf("logger = %T, want *log.NoopLogger", l)
	}
}
