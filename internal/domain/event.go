package domain

import "encoding/json"

// UnknownCode is assigned to events whose raw input could not be classified.
const UnknownCode = "unknown"

// Metadata keys assigned by the engine. Caller values under these names are overwritten.
const (
	MetaTimeUnix = "timeUnix"
	MetaTimeISO  = "timeISO"
	MetaPath     = "path"
	MetaHref     = "href"
	MetaUserID   = "userId"
)

// Event is a single normalized event record.
// Events are treated as immutable once created; the maps must not be mutated.
type Event struct {
	// ID is a unique identifier assigned at normalization
	ID string `json:"id"`

	// Code classifies the event; "unknown" when the input was unrecognized
	Code string `json:"code"`

	// Info is optional free text, present only when supplied or when
	// describing unrecognized input
	Info string `json:"info,omitempty"`

	// Data is an arbitrary caller payload
	Data any `json:"data,omitempty"`

	// Time is the engine-assigned creation time in Unix seconds
	Time int64 `json:"time"`

	// Metadata holds caller metadata merged with engine fields
	// (timeUnix, timeISO, path, href, userId)
	Metadata map[string]any `json:"metadata"`

	// Extra holds additional top-level fields of a map input.
	// They are flattened into the JSON object.
	Extra map[string]any `json:"-"`
}

// reserved top-level names that Extra may never shadow.
var reservedFields = map[string]struct{}{
	"id": {}, "code": {}, "info": {}, "data": {}, "time": {}, "metadata": {},
}

// IsReservedField reports whether name is a top-level Event field.
func IsReservedField(name string) bool {
	_, ok := reservedFields[name]
	return ok
}

// MarshalJSON flattens Extra next to the fixed fields.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	if len(e.Extra) == 0 {
		return json.Marshal(plain(e))
	}

	fixed, err := json.Marshal(plain(e))
	if err != nil {
		return nil, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(fixed, &obj); err != nil {
		return nil, err
	}
	for k, v := range e.Extra {
		if IsReservedField(k) {
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		obj[k] = b
	}
	return json.Marshal(obj)
}

// UserID returns the engine-assigned user id, or "" when none was configured.
func (e Event) UserID() string {
	if s, ok := e.Metadata[MetaUserID].(string); ok {
		return s
	}
	return ""
}
