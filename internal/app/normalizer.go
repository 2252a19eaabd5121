package app

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/logjam/internal/domain"
)

// timeISOLayout matches the millisecond ISO-8601 form used in event metadata.
const timeISOLayout = "2006-01-02T15:04:05.000Z07:00"

// NormalizerConfig configures the engine-assigned event metadata.
type NormalizerConfig struct {
	// Path and Href describe where the events originate (route, service, page)
	Path string
	Href string

	// UserID is stamped on every event; empty means null
	UserID string

	// Now and NewID are replaceable for tests
	Now   func() time.Time
	NewID func() string
}

// Normalizer converts arbitrary input into canonical events. It never fails.
type Normalizer struct {
	mu     sync.RWMutex
	path   string
	href   string
	userID string

	now   func() time.Time
	newID func() string
}

// NewNormalizer creates a normalizer with the given configuration.
func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	n := &Normalizer{
		path:   cfg.Path,
		href:   cfg.Href,
		userID: cfg.UserID,
		now:    cfg.Now,
		newID:  cfg.NewID,
	}
	if n.now == nil {
		n.now = time.Now
	}
	if n.newID == nil {
		n.newID = uuid.NewString
	}
	return n
}

// SetLocation updates the path and href stamped on subsequent events.
func (n *Normalizer) SetLocation(path, href string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.path = path
	n.href = href
}

// SetUserID updates the user id stamped on subsequent events. "" clears it.
func (n *Normalizer) SetUserID(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.userID = id
}

// Normalize converts raw into an Event.
//
//   - domain.Event and maps are used as the base record (shallow copy)
//   - strings, numbers and booleans become the code
//   - anything else becomes an "unknown" event with the input stringified in Info
//
// Engine fields (id, time, metadata time/location/user) always overwrite
// caller-supplied values of the same name.
func (n *Normalizer) Normalize(raw any) domain.Event {
	var (
		e          domain.Event
		callerMeta map[string]any
	)

	switch v := raw.(type) {
	case domain.Event:
		e, callerMeta = copyEvent(v)
	case *domain.Event:
		if v == nil {
			e = unknownEvent(nil)
		} else {
			e, callerMeta = copyEvent(*v)
		}
	case map[string]any:
		e, callerMeta = eventFromMap(v)
	case map[string]string:
		m := make(map[string]any, len(v))
		for k, s := range v {
			m[k] = s
		}
		e, callerMeta = eventFromMap(m)
	default:
		if code, ok := domain.PrimitiveString(raw); ok {
			e.Code = code
		} else {
			e = unknownEvent(raw)
		}
	}

	if e.Code == "" {
		e.Code = domain.UnknownCode
	}

	n.stamp(&e, callerMeta)
	return e
}

// stamp assigns id, time and metadata.
func (n *Normalizer) stamp(e *domain.Event, callerMeta map[string]any) {
	n.mu.RLock()
	path, href, userID := n.path, n.href, n.userID
	n.mu.RUnlock()

	now := n.now()
	meta := make(map[string]any, len(callerMeta)+5)
	for k, v := range callerMeta {
		meta[k] = v
	}
	meta[domain.MetaTimeUnix] = now.Unix()
	meta[domain.MetaTimeISO] = now.UTC().Format(timeISOLayout)
	meta[domain.MetaPath] = path
	meta[domain.MetaHref] = href
	if userID != "" {
		meta[domain.MetaUserID] = userID
	} else {
		meta[domain.MetaUserID] = nil
	}

	e.ID = n.newID()
	e.Time = now.Unix()
	e.Metadata = meta
}

func copyEvent(v domain.Event) (domain.Event, map[string]any) {
	e := domain.Event{Code: v.Code, Info: v.Info, Data: v.Data}
	if len(v.Extra) > 0 {
		e.Extra = make(map[string]any, len(v.Extra))
		for k, x := range v.Extra {
			e.Extra[k] = x
		}
	}
	return e, v.Metadata
}

func eventFromMap(m map[string]any) (domain.Event, map[string]any) {
	var (
		e    domain.Event
		meta map[string]any
	)

	if code, ok := domain.PrimitiveString(m["code"]); ok {
		e.Code = code
	}
	switch info := m["info"].(type) {
	case nil:
	case string:
		e.Info = info
	default:
		e.Info = stringify(info)
	}
	e.Data = m["data"]
	if md, ok := m["metadata"].(map[string]any); ok {
		meta = md
	}

	for k, v := range m {
		if domain.IsReservedField(k) {
			continue
		}
		if e.Extra == nil {
			e.Extra = make(map[string]any)
		}
		e.Extra[k] = v
	}
	return e, meta
}

func unknownEvent(raw any) domain.Event {
	return domain.Event{Code: domain.UnknownCode, Info: stringify(raw)}
}

// stringify renders raw as JSON when possible. nil yields "".
func stringify(raw any) string {
	if raw == nil {
		return ""
	}
	if b, err := json.Marshal(raw); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", raw)
}
