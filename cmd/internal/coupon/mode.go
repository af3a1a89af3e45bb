package coupon

import "strings"

// EventMode says which backend issues codes for an event.
//
// The inbound contract carries this as a stringly flag whose historical
// values are "True", "False", and absent, each meaning something
// different; it is normalized to this enum exactly once at the edge.
type EventMode int

const (
	// EventModeUnspecified is the absent/unrecognized flag value.
	EventModeUnspecified EventMode = iota
	// EventModeVendorManaged issues via the ticketing vendor.
	EventModeVendorManaged
	// EventModeDocumentManaged claims from the inventory document.
	EventModeDocumentManaged
)

// ParseEventMode normalizes the wire flag.
func ParseEventMode(raw string) EventMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true":
		return EventModeVendorManaged
	case "false":
		return EventModeDocumentManaged
	default:
		return EventModeUnspecified
	}
}

// Effective resolves Unspecified to the documented default:
// vendor-managed, matching the long-standing behavior for events that
// never set the flag.
func (m EventMode) Effective() EventMode {
	if m == EventModeUnspecified {
		return EventModeVendorManaged
	}
	return m
}

func (m EventMode) String() string {
	switch m {
	case EventModeVendorManaged:
		return "vendor_managed"
	case EventModeDocumentManaged:
		return "document_managed"
	default:
		return "unspecified"
	}
}
