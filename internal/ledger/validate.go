package ledger

import "strconv"

// Validation predicates. Each is pure and total over its input domain;
// the engine composes them and reports any failure as ErrInvalidInput.
// They are exported so API clients can pre-check inputs before paying
// for a round trip.

// ValidScope reports whether s is one of the three GHG scopes.
func ValidScope(s uint64) bool {
	return s >= ScopeDirect && s <= ScopeOtherIndirect
}

// ValidAmount reports whether a is a positive emissions amount. There is
// no upper bound; overflow on later arithmetic is handled where the
// arithmetic happens.
func ValidAmount(a uint64) bool {
	return a > 0
}

// ValidDocHash reports whether h is exactly DocHashLen bytes.
func ValidDocHash(h []byte) bool {
	return len(h) == DocHashLen
}

// BoundedString reports whether s is at most max bytes.
func BoundedString(s string, max int) bool {
	return len(s) <= max
}

// ValidPeriod reports whether p is a reporting period: at most
// MaxPeriodLen bytes with a numeric four-byte year prefix ("2025-Q1",
// "2024", ...). The prefix check is deliberately loose and is not a
// calendar-period grammar.
func ValidPeriod(p string) bool {
	if len(p) < 4 || len(p) > MaxPeriodLen {
		return false
	}
	_, err := strconv.ParseUint(p[:4], 10, 64)
	return err == nil
}
