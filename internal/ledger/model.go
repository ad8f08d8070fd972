package ledger

import "time"

// Principal identifies a caller: a company account, an auditor, or the
// admin. Principals are opaque byte strings to the ledger; registration
// and key management live in external systems.
type Principal string

// GHG scope classifiers for a disclosure.
const (
	ScopeDirect         = 1 // scope 1: direct emissions
	ScopeIndirectEnergy = 2 // scope 2: purchased energy
	ScopeOtherIndirect  = 3 // scope 3: other indirect
)

// DocHashLen is the required supporting-document digest length in bytes.
// The ledger never computes digests; it stores what the caller supplies
// and checks only the length.
const DocHashLen = 32

// Field length ceilings, in bytes.
const (
	MaxMetadataLen  = 500
	MaxReasonLen    = 200
	MaxNotesLen     = 300
	MaxFrequencyLen = 10
	MaxPeriodLen    = 10
)

// Entry is one logged emissions disclosure, keyed by (Company, ID).
// Entry ids come from a single counter shared across all companies, so
// they are globally assigned in call order even though the key scopes
// them per company. Entries are immutable and never deleted.
type Entry struct {
	Company         Principal `json:"company"`
	ID              uint64    `json:"id"`
	Scope           uint64    `json:"scope"`
	Amount          uint64    `json:"amount"`
	DocHash         []byte    `json:"doc_hash"`
	ReportingPeriod string    `json:"reporting_period"`
	Metadata        string    `json:"metadata"`
	Timestamp       time.Time `json:"timestamp"`
}

// Version is a correction record layered on top of an entry, keyed by
// (Company, EntryID, Version). Version numbers are caller-chosen: gaps
// and non-monotonic reuse are permitted, and re-using a number replaces
// the earlier record.
type Version struct {
	Company       Principal `json:"company"`
	EntryID       uint64    `json:"entry_id"`
	Version       uint64    `json:"version"`
	UpdatedAmount uint64    `json:"updated_amount"`
	UpdateReason  string    `json:"update_reason"`
	Updater       Principal `json:"updater"`
	Timestamp     time.Time `json:"timestamp"`
}

// Verification is an auditor attestation, keyed by (Company, EntryID).
// One slot per entry; a later attestation overwrites the earlier one.
type Verification struct {
	Company   Principal `json:"company"`
	EntryID   uint64    `json:"entry_id"`
	Auditor   Principal `json:"auditor"`
	Verified  bool      `json:"verified"`
	Notes     string    `json:"notes"`
	Timestamp time.Time `json:"timestamp"`
}

// Auditor records an admin-granted right to attach attestations.
// Presence in the auditor set is the sole authorization gate for
// VerifyEmission.
type Auditor struct {
	Auditor Principal `json:"auditor"`
	AddedBy Principal `json:"added_by"`
	AddedAt time.Time `json:"added_at"`
}

// Settings holds a company's self-service reporting preferences,
// independent of its ledger entries.
type Settings struct {
	Company            Principal `json:"company"`
	ReportingFrequency string    `json:"reporting_frequency"`
	AutoAggregate      bool      `json:"auto_aggregate"`
}
