package ledger

import "errors"

// Error kinds returned by the engine. Several distinct causes share one
// kind on purpose: LogEmissions folds every input-validation failure
// into ErrInvalidInput, and UpdateEmission/VerifyEmission report a
// missing entry as ErrUnauthorized. External consumers key off these
// collapsed signals, so they are part of the contract.
var (
	// ErrPaused is returned while the global kill switch is on. Only
	// Pause/Unpause and the read accessors are admitted in that state.
	ErrPaused = errors.New("ledger is paused")

	// ErrNotRegistered is returned when the caller is not a registered
	// company according to the external registry.
	ErrNotRegistered = errors.New("company not registered")

	// ErrUnauthorized is returned when the caller lacks the required
	// role, and also when the referenced entry does not exist on the
	// update and verify paths.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidInput is returned when the scope, amount, digest,
	// reporting period, or a bounded string fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyLogged is returned when an entry already exists under
	// the key assigned to a new disclosure.
	ErrAlreadyLogged = errors.New("entry already logged")

	// ErrInvalidVersion is returned for correction version number zero.
	ErrInvalidVersion = errors.New("invalid version")

	// ErrNotFound is the explicit absent-value marker returned by read
	// accessors and store lookups.
	ErrNotFound = errors.New("not found")

	// ErrOverflow is returned when an aggregation sum would wrap uint64.
	ErrOverflow = errors.New("amount sum overflow")
)
