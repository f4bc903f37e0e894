package domain

import "time"

// SourceSystemInit marks entries written during session initialization
// rather than by a capability invocation.
const SourceSystemInit = "system_initialization"

// Metadata records the provenance of a state entry.
type Metadata struct {
	// Timestamp is the UTC moment the entry was committed.
	Timestamp time.Time `json:"timestamp_utc"`

	// TurnID is a unique identifier generated for the invocation that
	// produced this entry. Two commits never share a TurnID.
	TurnID string `json:"turn_id,omitempty"`

	// Source is set for entries not produced by a capability
	// (e.g. session initialization).
	Source string `json:"source,omitempty"`
}

// StateEntry is the latest recorded result for a key in the state store.
// Writes overwrite; there is no history.
type StateEntry struct {
	Result   any      `json:"result"`
	Metadata Metadata `json:"metadata"`
}
