package ledger_test

import (
	"strings"
	"testing"

	"github.com/carbonledger/carbonledger/internal/ledger"
)

func TestValidScope(t *testing.T) {
	cases := []struct {
		scope uint64
		want  bool
	}{
		{0, false},
		{1, true},
		{2, true},
		{3, true},
		{4, false},
		{100, false},
	}
	for _, c := range cases {
		if got := ledger.ValidScope(c.scope); got != c.want {
			t.Errorf("ValidScope(%d) = %v, want %v", c.scope, got, c.want)
		}
	}
}

func TestValidAmount(t *testing.T) {
	if ledger.ValidAmount(0) {
		t.Error("ValidAmount(0) should be false")
	}
	if !ledger.ValidAmount(1) {
		t.Error("ValidAmount(1) should be true")
	}
	if !ledger.ValidAmount(^uint64(0)) {
		t.Error("ValidAmount(MaxUint64) should be true; amounts have no upper bound")
	}
}

func TestValidDocHash(t *testing.T) {
	if !ledger.ValidDocHash(make([]byte, 32)) {
		t.Error("32-byte digest should be valid")
	}
	if ledger.ValidDocHash(make([]byte, 31)) {
		t.Error("31-byte digest should be invalid")
	}
	if ledger.ValidDocHash(make([]byte, 33)) {
		t.Error("33-byte digest should be invalid")
	}
	if ledger.ValidDocHash(nil) {
		t.Error("nil digest should be invalid")
	}
}

func TestBoundedString(t *testing.T) {
	if !ledger.BoundedString("", 10) {
		t.Error("empty string should fit any bound")
	}
	if !ledger.BoundedString(strings.Repeat("x", 10), 10) {
		t.Error("string at the bound should fit")
	}
	if ledger.BoundedString(strings.Repeat("x", 11), 10) {
		t.Error("string over the bound should not fit")
	}
}

func TestValidPeriod(t *testing.T) {
	cases := []struct {
		period string
		want   bool
	}{
		{"2025-Q1", true},
		{"2024", true},
		{"0000", true},
		{"20251231xx", true},  // exactly 10 bytes, numeric prefix
		{"2025-01-01x", false}, // 11 bytes
		{"Q1-2025", false},     // non-numeric prefix
		{"202", false},         // too short for a year prefix
		{"", false},
		{"abcd-Q1", false},
	}
	for _, c := range cases {
		if got := ledger.ValidPeriod(c.period); got != c.want {
			t.Errorf("ValidPeriod(%q) = %v, want %v", c.period, got, c.want)
		}
	}
}
