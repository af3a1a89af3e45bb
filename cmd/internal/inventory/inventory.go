package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Entry status values as stored in the document.
const (
	StatusAvailable = "available"
	StatusUsed      = "used"
)

// CodeEntry is a single discount code slot in the document.
type CodeEntry struct {
	Code   string `json:"code"`
	Tier   string `json:"tier"`
	Status string `json:"status"`
}

// MarkUsed transitions the entry to used in place.
// There is no reverse transition anywhere in this package.
func (e *CodeEntry) MarkUsed() {
	e.Status = StatusUsed
}

// Available reports whether the entry can still be claimed.
func (e *CodeEntry) Available() bool {
	return e.Status == StatusAvailable
}

// Document is the parsed inventory. Exactly one of grouped/flat is set;
// the variant is fixed at parse time and drives lookup dispatch.
type Document struct {
	grouped map[string][]*CodeEntry
	flat    []*CodeEntry
}

// envelope is the on-disk shape: {"codes": <grouped map or flat list>}.
type envelope struct {
	Codes json.RawMessage `json:"codes"`
}

// Parse decodes the document bytes into a Document.
// Unparseable input, a missing codes field, or an event key whose value
// is not a sequence all return ErrCorrupt.
func Parse(content []byte) (*Document, error) {
	var env envelope
	if err := json.Unmarshal(content, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	raw := bytes.TrimSpace(env.Codes)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: missing codes field", ErrCorrupt)
	}

	switch raw[0] {
	case '{':
		byEvent := make(map[string]json.RawMessage)
		if err := json.Unmarshal(raw, &byEvent); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		grouped := make(map[string][]*CodeEntry, len(byEvent))
		for event, entries := range byEvent {
			var list []*CodeEntry
			if err := json.Unmarshal(entries, &list); err != nil {
				return nil, fmt.Errorf("%w: event %q is not a code sequence", ErrCorrupt, event)
			}
			grouped[event] = list
		}
		return &Document{grouped: grouped}, nil
	case '[':
		var list []*CodeEntry
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return &Document{flat: list}, nil
	default:
		return nil, fmt.Errorf("%w: codes is neither a map nor a sequence", ErrCorrupt)
	}
}

// FindAvailable returns the first available entry matching tier
// (case-insensitive) in stable document order, or nil when none match.
// A nil result is a legitimate empty-inventory outcome, not an error.
// Flat documents carry no event grouping, so eventKey is ignored there.
func (d *Document) FindAvailable(eventKey, tier string) *CodeEntry {
	entries := d.flat
	if d.grouped != nil {
		entries = d.grouped[eventKey]
	}
	for _, e := range entries {
		if e == nil {
			continue
		}
		if e.Available() && strings.EqualFold(e.Tier, tier) {
			return e
		}
	}
	return nil
}

// Entries returns the entry list for an event key (the whole list for
// flat documents). Exposed for callers that need to inspect state.
func (d *Document) Entries(eventKey string) []*CodeEntry {
	if d.grouped != nil {
		return d.grouped[eventKey]
	}
	return d.flat
}

// Serialize re-encodes the full document deterministically, preserving
// the parsed variant. Entries the caller did not touch round-trip
// unchanged; grouped map keys encode in sorted order.
func (d *Document) Serialize() ([]byte, error) {
	var codes any
	if d.grouped != nil {
		codes = d.grouped
	} else {
		codes = d.flat
	}
	return json.MarshalIndent(struct {
		Codes any `json:"codes"`
	}{Codes: codes}, "", "  ")
}
