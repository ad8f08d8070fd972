package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carbonledger/carbonledger/internal/ledger"
)

var ctx = context.Background()

func newEntry(company ledger.Principal, amount uint64) *ledger.Entry {
	return &ledger.Entry{
		Company:         company,
		Scope:           1,
		Amount:          amount,
		DocHash:         make([]byte, ledger.DocHashLen),
		ReportingPeriod: "2025-Q1",
		Timestamp:       time.Now().UTC(),
	}
}

func TestMemoryStore_appendAssignsSequentialIDs(t *testing.T) {
	s := ledger.NewMemoryStore()

	for i := uint64(0); i < 3; i++ {
		id, err := s.AppendEntry(ctx, newEntry("acme", 100))
		if err != nil {
			t.Fatal(err)
		}
		if id != i {
			t.Errorf("append %d: got id %d", i, id)
		}
	}

	n, err := s.EntryCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("EntryCount() = %d, want 3", n)
	}
}

func TestMemoryStore_counterIsGlobalAcrossCompanies(t *testing.T) {
	s := ledger.NewMemoryStore()

	id1, _ := s.AppendEntry(ctx, newEntry("acme", 100))
	id2, _ := s.AppendEntry(ctx, newEntry("globex", 200))
	if id1 != 0 || id2 != 1 {
		t.Errorf("ids = %d, %d; counter should be shared across companies", id1, id2)
	}

	if _, err := s.GetEntry(ctx, "acme", 1); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("acme should not own entry 1: %v", err)
	}
	if _, err := s.GetEntry(ctx, "globex", 1); err != nil {
		t.Errorf("globex should own entry 1: %v", err)
	}
}

func TestMemoryStore_getEntryAbsent(t *testing.T) {
	s := ledger.NewMemoryStore()
	if _, err := s.GetEntry(ctx, "acme", 0); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_putVersionOverwrites(t *testing.T) {
	s := ledger.NewMemoryStore()
	_, _ = s.AppendEntry(ctx, newEntry("acme", 100))

	v := &ledger.Version{Company: "acme", EntryID: 0, Version: 1, UpdatedAmount: 120, UpdateReason: "first"}
	if err := s.PutVersion(ctx, v); err != nil {
		t.Fatal(err)
	}
	v2 := &ledger.Version{Company: "acme", EntryID: 0, Version: 1, UpdatedAmount: 150, UpdateReason: "second"}
	if err := s.PutVersion(ctx, v2); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetVersion(ctx, "acme", 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.UpdatedAmount != 150 || got.UpdateReason != "second" {
		t.Errorf("version not overwritten: %+v", got)
	}
}

func TestMemoryStore_auditorLifecycle(t *testing.T) {
	s := ledger.NewMemoryStore()

	if err := s.PutAuditor(ctx, &ledger.Auditor{Auditor: "aud1", AddedBy: "admin"}); err != nil {
		t.Fatal(err)
	}
	a, err := s.GetAuditor(ctx, "aud1")
	if err != nil {
		t.Fatal(err)
	}
	if a.AddedBy != "admin" {
		t.Errorf("AddedBy = %q, want admin", a.AddedBy)
	}

	if err := s.DeleteAuditor(ctx, "aud1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetAuditor(ctx, "aud1"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting an absent grant is a no-op.
	if err := s.DeleteAuditor(ctx, "aud1"); err != nil {
		t.Errorf("second delete should be a no-op: %v", err)
	}
}

func TestMemoryStore_pauseSwitch(t *testing.T) {
	s := ledger.NewMemoryStore()

	paused, _ := s.Paused(ctx)
	if paused {
		t.Fatal("new store should start unpaused")
	}
	if err := s.SetPaused(ctx, true); err != nil {
		t.Fatal(err)
	}
	paused, _ = s.Paused(ctx)
	if !paused {
		t.Error("expected paused after SetPaused(true)")
	}
}

func TestMemoryStore_storedEntryIsDetached(t *testing.T) {
	s := ledger.NewMemoryStore()
	e := newEntry("acme", 100)
	_, _ = s.AppendEntry(ctx, e)

	e.Amount = 999
	got, err := s.GetEntry(ctx, "acme", 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.Amount != 100 {
		t.Errorf("stored entry mutated through caller's pointer: amount %d", got.Amount)
	}
}
