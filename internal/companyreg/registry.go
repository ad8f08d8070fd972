// Package companyreg provides implementations of the external
// company-registration oracle the ledger engine consults. Actual
// registration — identity vetting, onboarding — happens in a separate
// system; this package only answers "is this principal a registered
// company".
package companyreg

import (
	"context"
	"errors"
	"fmt"

	"github.com/carbonledger/carbonledger/internal/ledger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StaticRegistry answers from a fixed allowlist. Useful for development
// and tests, or for deployments whose company set is managed through
// configuration.
type StaticRegistry struct {
	companies map[ledger.Principal]struct{}
}

// NewStaticRegistry builds a StaticRegistry from the given principals.
func NewStaticRegistry(companies []string) *StaticRegistry {
	set := make(map[ledger.Principal]struct{}, len(companies))
	for _, c := range companies {
		set[ledger.Principal(c)] = struct{}{}
	}
	return &StaticRegistry{companies: set}
}

// IsRegistered implements ledger.CompanyRegistry.
func (r *StaticRegistry) IsRegistered(_ context.Context, company ledger.Principal) (bool, error) {
	_, ok := r.companies[company]
	return ok, nil
}

// PostgresRegistry answers from the companies table, whose rows are
// maintained by the external registration system.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistry creates a PostgresRegistry backed by the given pool.
func NewPostgresRegistry(pool *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{pool: pool}
}

// IsRegistered implements ledger.CompanyRegistry.
func (r *PostgresRegistry) IsRegistered(ctx context.Context, company ledger.Principal) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx,
		"SELECT 1 FROM companies WHERE principal = $1", string(company),
	).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query companies: %w", err)
	}
	return true, nil
}
