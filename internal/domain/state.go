package domain

import "strings"

// SenderState reports whether a send is in flight for a key.
type SenderState int

const (
	Idle SenderState = iota
	Sending
)

// String returns a human-readable representation of the state.
func (s SenderState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Sending:
		return "Sending"
	default:
		return "Unknown"
	}
}

// Capability is the set of activities a jam suppresses for a key.
type Capability uint8

const (
	// CapLogging rejects new appends for the key.
	CapLogging Capability = 1 << iota

	// CapSending rejects dispatch attempts for the key.
	CapSending

	// CapAll suppresses both logging and sending.
	CapAll = CapLogging | CapSending
)

// Has reports whether every bit of other is set in c.
func (c Capability) Has(other Capability) bool {
	return other != 0 && c&other == other
}

// String returns a comma separated list such as "logging,sending".
func (c Capability) String() string {
	var parts []string
	if c&CapLogging != 0 {
		parts = append(parts, "logging")
	}
	if c&CapSending != 0 {
		parts = append(parts, "sending")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

// ParseCapabilities combines capability names. Unknown names are ignored.
// An empty list yields CapAll, matching the default of a jam without arguments.
func ParseCapabilities(names ...string) Capability {
	if len(names) == 0 {
		return CapAll
	}
	var c Capability
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "logging":
			c |= CapLogging
		case "sending":
			c |= CapSending
		}
	}
	return c
}
