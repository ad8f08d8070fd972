// Package events delivers ledger events to external observers — the
// compliance-report generator and the credit/penalty system consume
// these rather than polling the ledger. Emitters never fail the
// operation that produced the event; delivery is best-effort.
package events

import (
	"context"

	"github.com/carbonledger/carbonledger/internal/ledger"
	"go.uber.org/zap"
)

// LogEmitter writes events to the structured log. It is the default
// sink in development and doubles as an audit trail in production.
type LogEmitter struct {
	logger *zap.Logger
}

// NewLogEmitter creates a LogEmitter.
func NewLogEmitter(logger *zap.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit implements ledger.Emitter.
func (e *LogEmitter) Emit(_ context.Context, ev ledger.Event) {
	e.logger.Info("ledger event",
		zap.String("type", ev.Type),
		zap.String("company", string(ev.Company)),
		zap.Uint64("entry_id", ev.EntryID),
		zap.String("actor", string(ev.Actor)),
		zap.Any("fields", ev.Fields),
	)
}

// Multi fans an event out to several emitters in order.
type Multi []ledger.Emitter

// Emit implements ledger.Emitter.
func (m Multi) Emit(ctx context.Context, ev ledger.Event) {
	for _, e := range m {
		e.Emit(ctx, ev)
	}
}
