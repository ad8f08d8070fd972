package ledger

import (
	"context"
	"sync"
)

type entryKey struct {
	company Principal
	id      uint64
}

type versionKey struct {
	company Principal
	id      uint64
	version uint64
}

// MemoryStore is an in-memory, thread-safe Store implementation. It is
// primarily useful for tests and for single-process deployments that do
// not need durability across restarts.
type MemoryStore struct {
	mu            sync.RWMutex
	entries       map[entryKey]Entry
	versions      map[versionKey]Version
	verifications map[entryKey]Verification
	auditors      map[Principal]Auditor
	settings      map[Principal]Settings
	counter       uint64
	paused        bool
}

// NewMemoryStore creates an empty MemoryStore with the entry counter at
// zero and the pause switch off.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:       make(map[entryKey]Entry),
		versions:      make(map[versionKey]Version),
		verifications: make(map[entryKey]Verification),
		auditors:      make(map[Principal]Auditor),
		settings:      make(map[Principal]Settings),
	}
}

// AppendEntry implements Store.
func (s *MemoryStore) AppendEntry(_ context.Context, e *Entry) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entryKey{company: e.Company, id: s.counter}
	if _, ok := s.entries[key]; ok {
		return 0, ErrAlreadyLogged
	}

	e.ID = s.counter
	s.entries[key] = *e
	s.counter++
	return e.ID, nil
}

// GetEntry implements Store.
func (s *MemoryStore) GetEntry(_ context.Context, company Principal, id uint64) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[entryKey{company: company, id: id}]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

// PutVersion implements Store.
func (s *MemoryStore) PutVersion(_ context.Context, v *Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[versionKey{company: v.Company, id: v.EntryID, version: v.Version}] = *v
	return nil
}

// GetVersion implements Store.
func (s *MemoryStore) GetVersion(_ context.Context, company Principal, id, version uint64) (*Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.versions[versionKey{company: company, id: id, version: version}]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

// PutVerification implements Store.
func (s *MemoryStore) PutVerification(_ context.Context, v *Verification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifications[entryKey{company: v.Company, id: v.EntryID}] = *v
	return nil
}

// GetVerification implements Store.
func (s *MemoryStore) GetVerification(_ context.Context, company Principal, id uint64) (*Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.verifications[entryKey{company: company, id: id}]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

// PutAuditor implements Store.
func (s *MemoryStore) PutAuditor(_ context.Context, a *Auditor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditors[a.Auditor] = *a
	return nil
}

// DeleteAuditor implements Store.
func (s *MemoryStore) DeleteAuditor(_ context.Context, auditor Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.auditors, auditor)
	return nil
}

// GetAuditor implements Store.
func (s *MemoryStore) GetAuditor(_ context.Context, auditor Principal) (*Auditor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.auditors[auditor]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

// PutSettings implements Store.
func (s *MemoryStore) PutSettings(_ context.Context, st *Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[st.Company] = *st
	return nil
}

// GetSettings implements Store.
func (s *MemoryStore) GetSettings(_ context.Context, company Principal) (*Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.settings[company]
	if !ok {
		return nil, ErrNotFound
	}
	return &st, nil
}

// SetPaused implements Store.
func (s *MemoryStore) SetPaused(_ context.Context, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
	return nil
}

// Paused implements Store.
func (s *MemoryStore) Paused(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused, nil
}

// EntryCount implements Store.
func (s *MemoryStore) EntryCount(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counter, nil
}
