package ledger

import "context"

// Store is the persistence interface for the ledger's four keyed maps
// and its global state. Every method is individually atomic; operation
// ordering is the Engine's job. Lookups return ErrNotFound for absent
// keys, never a structural failure.
// Both MemoryStore and PostgresStore implement this interface.
type Store interface {
	// AppendEntry assigns the current counter value as e.ID, inserts the
	// entry, and advances the counter by one, all atomically. The
	// assigned id is returned. ErrAlreadyLogged is returned if an entry
	// already occupies the assigned key, in which case the counter does
	// not move.
	AppendEntry(ctx context.Context, e *Entry) (uint64, error)

	// GetEntry returns the entry at (company, id).
	GetEntry(ctx context.Context, company Principal, id uint64) (*Entry, error)

	// PutVersion inserts or replaces the correction record at
	// (v.Company, v.EntryID, v.Version).
	PutVersion(ctx context.Context, v *Version) error

	// GetVersion returns the correction record at (company, id, version).
	GetVersion(ctx context.Context, company Principal, id, version uint64) (*Version, error)

	// PutVerification inserts or replaces the attestation at
	// (v.Company, v.EntryID).
	PutVerification(ctx context.Context, v *Verification) error

	// GetVerification returns the attestation at (company, id).
	GetVerification(ctx context.Context, company Principal, id uint64) (*Verification, error)

	// PutAuditor inserts or replaces an auditor grant.
	PutAuditor(ctx context.Context, a *Auditor) error

	// DeleteAuditor removes an auditor grant. Removing an absent grant
	// is a no-op.
	DeleteAuditor(ctx context.Context, auditor Principal) error

	// GetAuditor returns the grant for the given auditor.
	GetAuditor(ctx context.Context, auditor Principal) (*Auditor, error)

	// PutSettings inserts or replaces a company's settings.
	PutSettings(ctx context.Context, s *Settings) error

	// GetSettings returns the settings for the given company.
	GetSettings(ctx context.Context, company Principal) (*Settings, error)

	// SetPaused sets the global pause switch.
	SetPaused(ctx context.Context, paused bool) error

	// Paused returns the global pause switch.
	Paused(ctx context.Context) (bool, error)

	// EntryCount returns the number of entries ever logged, which equals
	// the id the next AppendEntry will assign.
	EntryCount(ctx context.Context) (uint64, error)
}
