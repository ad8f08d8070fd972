package ledger

import (
	"context"
	"time"
)

// Event types emitted after successful mutations.
const (
	EventLogged   = "emissions.logged"
	EventUpdated  = "emissions.updated"
	EventVerified = "emissions.verified"
)

// Event carries the operation name and key fields of a successful
// mutation, for consumption by external observers such as compliance
// reporting and penalty enforcement.
type Event struct {
	Type      string         `json:"type"`
	Company   Principal      `json:"company"`
	EntryID   uint64         `json:"entry_id"`
	Actor     Principal      `json:"actor"`
	Fields    map[string]any `json:"fields,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Emitter receives events after each successful mutating operation.
// Implementations must not block: the engine calls Emit while holding
// its write lock. The emitters in internal/events satisfy this
// interface.
type Emitter interface {
	Emit(ctx context.Context, ev Event)
}
