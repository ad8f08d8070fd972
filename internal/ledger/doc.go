// Package ledger implements the emissions disclosure ledger: an
// append-only, versioned record of corporate emissions disclosures with
// role-gated writes, auditor attestation, and bounded range aggregation.
//
// Entries are immutable once logged. Corrections are layered on top as
// version records rather than in-place edits, and each entry carries a
// single auditor-attestation slot that later attestations overwrite.
// Every mutating operation passes through the Engine, which checks the
// global pause switch, then authorization, then input validation, and
// only then touches the store. Each operation either fully applies or
// leaves state untouched.
//
// Two implementations of the Store interface are provided:
//   - MemoryStore: in-process, for testing and development.
//   - PostgresStore: durable, for production use.
package ledger
