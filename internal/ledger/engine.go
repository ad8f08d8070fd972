package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxScanWidth is the default cap on the number of entry ids a
// single TotalEmissions call will scan.
const DefaultMaxScanWidth = 50

// CompanyRegistry is the external company-registration oracle. The
// engine treats it as an opaque boolean check and assumes nothing about
// its internal logic. *companyreg.StaticRegistry and
// *companyreg.PostgresRegistry satisfy this interface.
type CompanyRegistry interface {
	IsRegistered(ctx context.Context, company Principal) (bool, error)
}

// Engine composes the pause switch, access control, input validation,
// and the store into the ledger's operations.
//
// Mutating operations are applied one at a time in total order: a mutex
// is held for the full span of every mutating call, so each call reaches
// a terminal outcome — state mutated, or an error with no mutation —
// before the next is admitted. Read accessors bypass the lock and run
// against the store's own consistent view.
type Engine struct {
	mu       sync.Mutex
	store    Store
	registry CompanyRegistry
	admin    Principal
	emitter  Emitter // nil = no event emission
	maxScan  uint64
	now      func() time.Time
	logger   *zap.Logger
}

// NewEngine creates an Engine. The admin principal is fixed for the
// engine's lifetime; there is no operation that changes it.
func NewEngine(store Store, registry CompanyRegistry, admin Principal, logger *zap.Logger) *Engine {
	return &Engine{
		store:    store,
		registry: registry,
		admin:    admin,
		maxScan:  DefaultMaxScanWidth,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// SetEmitter configures the event sink for successful mutations.
func (e *Engine) SetEmitter(em Emitter) {
	e.emitter = em
}

// SetMaxScanWidth overrides the aggregation scan cap. Zero is ignored.
func (e *Engine) SetMaxScanWidth(n uint64) {
	if n > 0 {
		e.maxScan = n
	}
}

// SetClock overrides the timestamp source. Intended for tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

func (e *Engine) emit(ctx context.Context, ev Event) {
	if e.emitter != nil {
		e.emitter.Emit(ctx, ev)
	}
}

// checkPaused returns ErrPaused while the kill switch is on.
func (e *Engine) checkPaused(ctx context.Context) error {
	paused, err := e.store.Paused(ctx)
	if err != nil {
		return fmt.Errorf("read pause state: %w", err)
	}
	if paused {
		return ErrPaused
	}
	return nil
}

// checkRegistered returns ErrNotRegistered unless the registry vouches
// for the company.
func (e *Engine) checkRegistered(ctx context.Context, company Principal) error {
	ok, err := e.registry.IsRegistered(ctx, company)
	if err != nil {
		return fmt.Errorf("company registry: %w", err)
	}
	if !ok {
		return ErrNotRegistered
	}
	return nil
}

// Pause turns the global kill switch on. Admin only. Pause itself is
// exempt from the pause gate, so a paused ledger can always be paused
// again or unpaused.
func (e *Engine) Pause(ctx context.Context, caller Principal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.admin {
		return ErrUnauthorized
	}
	if err := e.store.SetPaused(ctx, true); err != nil {
		return err
	}
	e.logger.Info("ledger paused", zap.String("by", string(caller)))
	return nil
}

// Unpause turns the global kill switch off. Admin only.
func (e *Engine) Unpause(ctx context.Context, caller Principal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.admin {
		return ErrUnauthorized
	}
	if err := e.store.SetPaused(ctx, false); err != nil {
		return err
	}
	e.logger.Info("ledger unpaused", zap.String("by", string(caller)))
	return nil
}

// AddAuditor grants auditor rights. Admin only; granting an existing
// auditor refreshes its AddedBy/AddedAt fields.
func (e *Engine) AddAuditor(ctx context.Context, caller, auditor Principal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.admin {
		return ErrUnauthorized
	}
	return e.store.PutAuditor(ctx, &Auditor{
		Auditor: auditor,
		AddedBy: caller,
		AddedAt: e.now(),
	})
}

// RemoveAuditor revokes auditor rights. Admin only; revoking an absent
// auditor is a no-op.
func (e *Engine) RemoveAuditor(ctx context.Context, caller, auditor Principal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.admin {
		return ErrUnauthorized
	}
	return e.store.DeleteAuditor(ctx, auditor)
}

// SetCompanySettings upserts the caller's own reporting preferences.
func (e *Engine) SetCompanySettings(ctx context.Context, caller Principal, frequency string, autoAggregate bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkPaused(ctx); err != nil {
		return err
	}
	if err := e.checkRegistered(ctx, caller); err != nil {
		return err
	}
	if !BoundedString(frequency, MaxFrequencyLen) {
		return ErrInvalidInput
	}
	return e.store.PutSettings(ctx, &Settings{
		Company:            caller,
		ReportingFrequency: frequency,
		AutoAggregate:      autoAggregate,
	})
}

// LogEmissions validates and appends a new disclosure entry for the
// caller, returning the assigned entry id. Every input-validation
// failure is reported as ErrInvalidInput; callers needing finer
// diagnostics can pre-check with the exported predicates.
func (e *Engine) LogEmissions(ctx context.Context, caller Principal, scope, amount uint64, docHash []byte, period, metadata string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkPaused(ctx); err != nil {
		return 0, err
	}
	if err := e.checkRegistered(ctx, caller); err != nil {
		return 0, err
	}
	if !ValidScope(scope) || !ValidAmount(amount) || !ValidDocHash(docHash) ||
		!BoundedString(metadata, MaxMetadataLen) || !ValidPeriod(period) {
		return 0, ErrInvalidInput
	}

	entry := &Entry{
		Company:         caller,
		Scope:           scope,
		Amount:          amount,
		DocHash:         append([]byte(nil), docHash...),
		ReportingPeriod: period,
		Metadata:        metadata,
		Timestamp:       e.now(),
	}
	id, err := e.store.AppendEntry(ctx, entry)
	if err != nil {
		return 0, err
	}

	e.logger.Debug("emissions logged",
		zap.String("company", string(caller)),
		zap.Uint64("entry_id", id),
		zap.Uint64("scope", scope),
	)
	e.emit(ctx, Event{
		Type:    EventLogged,
		Company: caller,
		EntryID: id,
		Actor:   caller,
		Fields: map[string]any{
			"scope":            scope,
			"amount":           amount,
			"reporting_period": period,
		},
		Timestamp: entry.Timestamp,
	})
	return id, nil
}

// UpdateEmission layers a correction version on top of one of the
// caller's existing entries. Version numbers are caller-chosen and must
// be greater than zero; re-using a number overwrites the earlier record.
// A missing entry is reported as ErrUnauthorized — the same collapsed
// signal external consumers already handle for role failures.
func (e *Engine) UpdateEmission(ctx context.Context, caller Principal, entryID, newAmount uint64, reason string, version uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkPaused(ctx); err != nil {
		return err
	}
	if err := e.checkRegistered(ctx, caller); err != nil {
		return err
	}
	if _, err := e.store.GetEntry(ctx, caller, entryID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	if version == 0 {
		return ErrInvalidVersion
	}
	if !ValidAmount(newAmount) || !BoundedString(reason, MaxReasonLen) {
		return ErrInvalidInput
	}

	now := e.now()
	if err := e.store.PutVersion(ctx, &Version{
		Company:       caller,
		EntryID:       entryID,
		Version:       version,
		UpdatedAmount: newAmount,
		UpdateReason:  reason,
		Updater:       caller,
		Timestamp:     now,
	}); err != nil {
		return err
	}

	e.emit(ctx, Event{
		Type:    EventUpdated,
		Company: caller,
		EntryID: entryID,
		Actor:   caller,
		Fields: map[string]any{
			"version":        version,
			"updated_amount": newAmount,
		},
		Timestamp: now,
	})
	return nil
}

// VerifyEmission records an auditor attestation for the given entry,
// overwriting any earlier attestation in the entry's single slot. The
// caller must hold an auditor grant; a missing entry is reported as
// ErrUnauthorized, matching the collapsed role-failure signal.
func (e *Engine) VerifyEmission(ctx context.Context, caller, company Principal, entryID uint64, verified bool, notes string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkPaused(ctx); err != nil {
		return err
	}
	if _, err := e.store.GetAuditor(ctx, caller); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	if _, err := e.store.GetEntry(ctx, company, entryID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	if !BoundedString(notes, MaxNotesLen) {
		return ErrInvalidInput
	}

	now := e.now()
	if err := e.store.PutVerification(ctx, &Verification{
		Company:   company,
		EntryID:   entryID,
		Auditor:   caller,
		Verified:  verified,
		Notes:     notes,
		Timestamp: now,
	}); err != nil {
		return err
	}

	e.emit(ctx, Event{
		Type:    EventVerified,
		Company: company,
		EntryID: entryID,
		Actor:   caller,
		Fields: map[string]any{
			"verified": verified,
		},
		Timestamp: now,
	})
	return nil
}

// TotalEmissions sums entry amounts for company over ids in
// [startID, endID], clamped to the engine's maximum scan width. Ids
// outside the store contribute zero. Returns ErrOverflow if the running
// sum would wrap uint64.
func (e *Engine) TotalEmissions(ctx context.Context, company Principal, startID, endID uint64) (uint64, error) {
	if endID < startID {
		return 0, nil
	}
	last := endID
	if endID-startID >= e.maxScan {
		last = startID + e.maxScan - 1
	}

	var total uint64
	for id := startID; ; id++ {
		entry, err := e.store.GetEntry(ctx, company, id)
		switch {
		case err == nil:
			if total > math.MaxUint64-entry.Amount {
				return 0, ErrOverflow
			}
			total += entry.Amount
		case !errors.Is(err, ErrNotFound):
			return 0, err
		}
		if id == last {
			break
		}
	}
	return total, nil
}

// GetEmission returns the entry at (company, id), or ErrNotFound.
func (e *Engine) GetEmission(ctx context.Context, company Principal, id uint64) (*Entry, error) {
	return e.store.GetEntry(ctx, company, id)
}

// GetEmissionVersion returns the correction record at
// (company, id, version), or ErrNotFound.
func (e *Engine) GetEmissionVersion(ctx context.Context, company Principal, id, version uint64) (*Version, error) {
	return e.store.GetVersion(ctx, company, id, version)
}

// GetVerification returns the attestation at (company, id), or
// ErrNotFound.
func (e *Engine) GetVerification(ctx context.Context, company Principal, id uint64) (*Verification, error) {
	return e.store.GetVerification(ctx, company, id)
}

// IsAuditor reports whether the principal holds an auditor grant.
func (e *Engine) IsAuditor(ctx context.Context, auditor Principal) (bool, error) {
	_, err := e.store.GetAuditor(ctx, auditor)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetCompanySettings returns the settings for company, or ErrNotFound.
func (e *Engine) GetCompanySettings(ctx context.Context, company Principal) (*Settings, error) {
	return e.store.GetSettings(ctx, company)
}

// Paused reports the state of the global kill switch.
func (e *Engine) Paused(ctx context.Context) (bool, error) {
	return e.store.Paused(ctx)
}

// Admin returns the admin principal fixed at engine construction.
func (e *Engine) Admin() Principal {
	return e.admin
}

// TotalEntries returns the number of entries ever logged across all
// companies.
func (e *Engine) TotalEntries(ctx context.Context) (uint64, error) {
	return e.store.EntryCount(ctx)
}
