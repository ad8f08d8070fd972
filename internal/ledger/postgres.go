package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// appendLockKey is a stable PostgreSQL advisory lock key used to
// serialise concurrent AppendEntry calls. The value is arbitrary but
// must be consistent across all ledger instances sharing a database.
const appendLockKey = int64(7_420_318_655)

// uniqueViolation is the PostgreSQL error code for unique_violation.
const uniqueViolation = "23505"

// PostgresStore persists the ledger to PostgreSQL. The four keyed maps
// live in one table each; the pause switch and entry counter live in the
// single-row ledger_state table. It implements the Store interface.
//
// Amounts are stored in BIGINT columns, so values above MaxInt64 are
// rejected at the storage boundary as ErrInvalidInput even though the
// in-memory model carries uint64.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a PostgresStore backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

func dbAmount(a uint64) (int64, error) {
	if a > math.MaxInt64 {
		return 0, fmt.Errorf("amount %d exceeds storage range: %w", a, ErrInvalidInput)
	}
	return int64(a), nil
}

// AppendEntry implements Store.
// It acquires a PostgreSQL advisory lock, reads the entry counter, and
// inserts the entry with the counter value as its id — all within a
// single transaction, so the counter only advances when the insert
// lands.
func (s *PostgresStore) AppendEntry(ctx context.Context, e *Entry) (uint64, error) {
	amt, err := dbAmount(e.Amount)
	if err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Serialise concurrent appends with a transaction-scoped advisory
	// lock; it is released when the transaction commits or rolls back.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", appendLockKey); err != nil {
		return 0, fmt.Errorf("acquire advisory lock: %w", err)
	}

	var counter int64
	if err := tx.QueryRow(ctx,
		"SELECT entry_counter FROM ledger_state FOR UPDATE",
	).Scan(&counter); err != nil {
		return 0, fmt.Errorf("read entry counter: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO emission_entries
		   (company, entry_id, scope, amount, doc_hash, reporting_period, metadata, ts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(e.Company), counter, int64(e.Scope), amt,
		e.DocHash, e.ReportingPeriod, e.Metadata, e.Timestamp,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, ErrAlreadyLogged
		}
		return 0, fmt.Errorf("insert entry: %w", err)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE ledger_state SET entry_counter = entry_counter + 1",
	); err != nil {
		return 0, fmt.Errorf("advance entry counter: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit entry tx: %w", err)
	}

	e.ID = uint64(counter)
	s.logger.Debug("entry appended",
		zap.String("company", string(e.Company)),
		zap.Uint64("entry_id", e.ID),
	)
	return e.ID, nil
}

// GetEntry implements Store.
func (s *PostgresStore) GetEntry(ctx context.Context, company Principal, id uint64) (*Entry, error) {
	e := &Entry{}
	var scope, amount int64
	err := s.pool.QueryRow(ctx,
		`SELECT company, entry_id, scope, amount, doc_hash, reporting_period, metadata, ts
		   FROM emission_entries WHERE company = $1 AND entry_id = $2`,
		string(company), int64(id),
	).Scan(&e.Company, &e.ID, &scope, &amount, &e.DocHash, &e.ReportingPeriod, &e.Metadata, &e.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get entry (%s, %d): %w", company, id, err)
	}
	e.Scope = uint64(scope)
	e.Amount = uint64(amount)
	return e, nil
}

// PutVersion implements Store.
func (s *PostgresStore) PutVersion(ctx context.Context, v *Version) error {
	amt, err := dbAmount(v.UpdatedAmount)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO emission_versions
		   (company, entry_id, version, updated_amount, update_reason, updater, ts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (company, entry_id, version) DO UPDATE SET
		   updated_amount = EXCLUDED.updated_amount,
		   update_reason  = EXCLUDED.update_reason,
		   updater        = EXCLUDED.updater,
		   ts             = EXCLUDED.ts`,
		string(v.Company), int64(v.EntryID), int64(v.Version),
		amt, v.UpdateReason, string(v.Updater), v.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("put version: %w", err)
	}
	return nil
}

// GetVersion implements Store.
func (s *PostgresStore) GetVersion(ctx context.Context, company Principal, id, version uint64) (*Version, error) {
	v := &Version{}
	var amount int64
	err := s.pool.QueryRow(ctx,
		`SELECT company, entry_id, version, updated_amount, update_reason, updater, ts
		   FROM emission_versions WHERE company = $1 AND entry_id = $2 AND version = $3`,
		string(company), int64(id), int64(version),
	).Scan(&v.Company, &v.EntryID, &v.Version, &amount, &v.UpdateReason, &v.Updater, &v.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get version (%s, %d, %d): %w", company, id, version, err)
	}
	v.UpdatedAmount = uint64(amount)
	return v, nil
}

// PutVerification implements Store.
func (s *PostgresStore) PutVerification(ctx context.Context, v *Verification) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO verifications (company, entry_id, auditor, verified, notes, ts)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (company, entry_id) DO UPDATE SET
		   auditor  = EXCLUDED.auditor,
		   verified = EXCLUDED.verified,
		   notes    = EXCLUDED.notes,
		   ts       = EXCLUDED.ts`,
		string(v.Company), int64(v.EntryID), string(v.Auditor), v.Verified, v.Notes, v.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("put verification: %w", err)
	}
	return nil
}

// GetVerification implements Store.
func (s *PostgresStore) GetVerification(ctx context.Context, company Principal, id uint64) (*Verification, error) {
	v := &Verification{}
	err := s.pool.QueryRow(ctx,
		`SELECT company, entry_id, auditor, verified, notes, ts
		   FROM verifications WHERE company = $1 AND entry_id = $2`,
		string(company), int64(id),
	).Scan(&v.Company, &v.EntryID, &v.Auditor, &v.Verified, &v.Notes, &v.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get verification (%s, %d): %w", company, id, err)
	}
	return v, nil
}

// PutAuditor implements Store.
func (s *PostgresStore) PutAuditor(ctx context.Context, a *Auditor) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO auditors (auditor, added_by, added_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (auditor) DO UPDATE SET
		   added_by = EXCLUDED.added_by,
		   added_at = EXCLUDED.added_at`,
		string(a.Auditor), string(a.AddedBy), a.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("put auditor: %w", err)
	}
	return nil
}

// DeleteAuditor implements Store.
func (s *PostgresStore) DeleteAuditor(ctx context.Context, auditor Principal) error {
	if _, err := s.pool.Exec(ctx,
		"DELETE FROM auditors WHERE auditor = $1", string(auditor),
	); err != nil {
		return fmt.Errorf("delete auditor: %w", err)
	}
	return nil
}

// GetAuditor implements Store.
func (s *PostgresStore) GetAuditor(ctx context.Context, auditor Principal) (*Auditor, error) {
	a := &Auditor{}
	err := s.pool.QueryRow(ctx,
		"SELECT auditor, added_by, added_at FROM auditors WHERE auditor = $1",
		string(auditor),
	).Scan(&a.Auditor, &a.AddedBy, &a.AddedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get auditor %s: %w", auditor, err)
	}
	return a, nil
}

// PutSettings implements Store.
func (s *PostgresStore) PutSettings(ctx context.Context, st *Settings) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO company_settings (company, reporting_frequency, auto_aggregate)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (company) DO UPDATE SET
		   reporting_frequency = EXCLUDED.reporting_frequency,
		   auto_aggregate      = EXCLUDED.auto_aggregate`,
		string(st.Company), st.ReportingFrequency, st.AutoAggregate,
	)
	if err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	return nil
}

// GetSettings implements Store.
func (s *PostgresStore) GetSettings(ctx context.Context, company Principal) (*Settings, error) {
	st := &Settings{}
	err := s.pool.QueryRow(ctx,
		"SELECT company, reporting_frequency, auto_aggregate FROM company_settings WHERE company = $1",
		string(company),
	).Scan(&st.Company, &st.ReportingFrequency, &st.AutoAggregate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get settings %s: %w", company, err)
	}
	return st, nil
}

// SetPaused implements Store.
func (s *PostgresStore) SetPaused(ctx context.Context, paused bool) error {
	if _, err := s.pool.Exec(ctx,
		"UPDATE ledger_state SET paused = $1", paused,
	); err != nil {
		return fmt.Errorf("set paused: %w", err)
	}
	return nil
}

// Paused implements Store.
func (s *PostgresStore) Paused(ctx context.Context) (bool, error) {
	var paused bool
	if err := s.pool.QueryRow(ctx,
		"SELECT paused FROM ledger_state",
	).Scan(&paused); err != nil {
		return false, fmt.Errorf("read paused: %w", err)
	}
	return paused, nil
}

// EntryCount implements Store.
func (s *PostgresStore) EntryCount(ctx context.Context) (uint64, error) {
	var counter int64
	if err := s.pool.QueryRow(ctx,
		"SELECT entry_counter FROM ledger_state",
	).Scan(&counter); err != nil {
		return 0, fmt.Errorf("read entry counter: %w", err)
	}
	return uint64(counter), nil
}
