package client_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/carbonledger/carbonledger/internal/companyreg"
	"github.com/carbonledger/carbonledger/internal/identity"
	"github.com/carbonledger/carbonledger/internal/ledger"
	"github.com/carbonledger/carbonledger/internal/server/handler"
	"github.com/carbonledger/carbonledger/pkg/client"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const zeroHashHex = "0000000000000000000000000000000000000000000000000000000000000000"

func startServer(t *testing.T) (*httptest.Server, *identity.TokenIssuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := companyreg.NewStaticRegistry([]string{"company1", "company2"})
	eng := ledger.NewEngine(ledger.NewMemoryStore(), reg, "admin", zap.NewNop())
	tokens := identity.NewTokenIssuer([]byte("test-secret"), "test", time.Hour)

	r := gin.New()
	public := r.Group("/api/v1")
	authed := r.Group("/api/v1", handler.Auth(tokens))
	handler.NewLedgerHandler(eng, zap.NewNop()).Register(public, authed)
	handler.NewAdminHandler(eng, zap.NewNop()).Register(authed)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, tokens
}

func mint(t *testing.T, tokens *identity.TokenIssuer, principal string) string {
	t.Helper()
	tok, err := tokens.Issue(principal)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestClientRequestPaths(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"entry_id": 0}`)
	}))
	t.Cleanup(srv.Close)

	cl := client.New(srv.URL, client.WithToken("t"))
	if _, err := cl.LogEmissions(context.Background(), client.LogEmissionsRequest{
		Scope: 1, Amount: 1, DocHash: zeroHashHex, ReportingPeriod: "2025",
	}); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/api/v1/emissions" {
		t.Fatalf("request path = %q, want /api/v1/emissions", gotPath)
	}
}

func TestClientLogAndGet(t *testing.T) {
	srv, tokens := startServer(t)
	cl := client.New(srv.URL, client.WithToken(mint(t, tokens, "company1")))
	ctx := context.Background()

	id, err := cl.LogEmissions(ctx, client.LogEmissionsRequest{
		Scope:           1,
		Amount:          1000,
		DocHash:         zeroHashHex,
		ReportingPeriod: "2025-Q1",
		Metadata:        "plant A",
	})
	if err != nil {
		t.Fatalf("LogEmissions: %v", err)
	}
	if id != 0 {
		t.Fatalf("first entry id = %d, want 0", id)
	}

	e, err := cl.GetEmission(ctx, "company1", id)
	if err != nil {
		t.Fatalf("GetEmission: %v", err)
	}
	if e.Amount != 1000 || e.Scope != 1 || e.DocHash != zeroHashHex {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.Metadata != "plant A" {
		t.Fatalf("metadata = %q", e.Metadata)
	}
}

func TestClientUpdateAndVersion(t *testing.T) {
	srv, tokens := startServer(t)
	cl := client.New(srv.URL, client.WithToken(mint(t, tokens, "company1")))
	ctx := context.Background()

	id, err := cl.LogEmissions(ctx, client.LogEmissionsRequest{
		Scope: 2, Amount: 500, DocHash: zeroHashHex, ReportingPeriod: "2025-Q2",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := cl.UpdateEmission(ctx, id, 450, "meter recalibration", 1); err != nil {
		t.Fatalf("UpdateEmission: %v", err)
	}
	v, err := cl.GetVersion(ctx, "company1", id, 1)
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if v.UpdatedAmount != 450 || v.UpdateReason != "meter recalibration" {
		t.Fatalf("unexpected version: %+v", v)
	}

	if err := cl.UpdateEmission(ctx, id, 450, "x", 0); !errors.Is(err, client.ErrInvalidVersion) {
		t.Fatalf("version 0 err = %v, want ErrInvalidVersion", err)
	}
}

func TestClientVerifyFlow(t *testing.T) {
	srv, tokens := startServer(t)
	ctx := context.Background()

	admin := client.New(srv.URL, client.WithToken(mint(t, tokens, "admin")))
	company := client.New(srv.URL, client.WithToken(mint(t, tokens, "company1")))
	auditor := client.New(srv.URL, client.WithToken(mint(t, tokens, "auditor1")))

	id, err := company.LogEmissions(ctx, client.LogEmissionsRequest{
		Scope: 1, Amount: 100, DocHash: zeroHashHex, ReportingPeriod: "2025",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := auditor.VerifyEmission(ctx, "company1", id, true, "checked"); !errors.Is(err, client.ErrUnauthorized) {
		t.Fatalf("verify without grant err = %v, want ErrUnauthorized", err)
	}

	if err := admin.AddAuditor(ctx, "auditor1"); err != nil {
		t.Fatalf("AddAuditor: %v", err)
	}
	ok, err := admin.IsAuditor(ctx, "auditor1")
	if err != nil || !ok {
		t.Fatalf("IsAuditor = %v, %v", ok, err)
	}

	if err := auditor.VerifyEmission(ctx, "company1", id, true, "checked"); err != nil {
		t.Fatalf("VerifyEmission: %v", err)
	}
	v, err := auditor.GetVerification(ctx, "company1", id)
	if err != nil {
		t.Fatal(err)
	}
	if !v.Verified || v.Auditor != "auditor1" {
		t.Fatalf("unexpected verification: %+v", v)
	}

	if err := admin.RemoveAuditor(ctx, "auditor1"); err != nil {
		t.Fatalf("RemoveAuditor: %v", err)
	}
	ok, err = admin.IsAuditor(ctx, "auditor1")
	if err != nil || ok {
		t.Fatalf("IsAuditor after removal = %v, %v", ok, err)
	}
}

func TestClientPauseGate(t *testing.T) {
	srv, tokens := startServer(t)
	ctx := context.Background()

	admin := client.New(srv.URL, client.WithToken(mint(t, tokens, "admin")))
	company := client.New(srv.URL, client.WithToken(mint(t, tokens, "company1")))

	if err := company.Pause(ctx); !errors.Is(err, client.ErrUnauthorized) {
		t.Fatalf("non-admin pause err = %v, want ErrUnauthorized", err)
	}
	if err := admin.Pause(ctx); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	_, err := company.LogEmissions(ctx, client.LogEmissionsRequest{
		Scope: 1, Amount: 1, DocHash: zeroHashHex, ReportingPeriod: "2025",
	})
	if !errors.Is(err, client.ErrPaused) {
		t.Fatalf("log while paused err = %v, want ErrPaused", err)
	}

	ov, err := company.GetOverview(ctx)
	if err != nil {
		t.Fatalf("GetOverview: %v", err)
	}
	if !ov.Paused {
		t.Fatal("overview should report paused")
	}

	if err := admin.Unpause(ctx); err != nil {
		t.Fatalf("Unpause: %v", err)
	}
	if _, err := company.LogEmissions(ctx, client.LogEmissionsRequest{
		Scope: 1, Amount: 1, DocHash: zeroHashHex, ReportingPeriod: "2025",
	}); err != nil {
		t.Fatalf("log after unpause: %v", err)
	}
}

func TestClientTotalAndSettings(t *testing.T) {
	srv, tokens := startServer(t)
	ctx := context.Background()
	cl := client.New(srv.URL, client.WithToken(mint(t, tokens, "company1")))

	for _, amt := range []uint64{100, 200, 300} {
		if _, err := cl.LogEmissions(ctx, client.LogEmissionsRequest{
			Scope: 1, Amount: amt, DocHash: zeroHashHex, ReportingPeriod: "2025",
		}); err != nil {
			t.Fatal(err)
		}
	}

	total, err := cl.TotalEmissions(ctx, "company1", 0, 2)
	if err != nil {
		t.Fatalf("TotalEmissions: %v", err)
	}
	if total.Total != 600 {
		t.Fatalf("total = %d, want 600", total.Total)
	}

	if err := cl.SetSettings(ctx, "quarterly", true); err != nil {
		t.Fatalf("SetSettings: %v", err)
	}
	st, err := cl.GetSettings(ctx, "company1")
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if st.ReportingFrequency != "quarterly" || !st.AutoAggregate {
		t.Fatalf("unexpected settings: %+v", st)
	}
}

func TestClientErrorMapping(t *testing.T) {
	srv, tokens := startServer(t)
	ctx := context.Background()

	stranger := client.New(srv.URL, client.WithToken(mint(t, tokens, "nobody")))
	if _, err := stranger.LogEmissions(ctx, client.LogEmissionsRequest{
		Scope: 1, Amount: 1, DocHash: zeroHashHex, ReportingPeriod: "2025",
	}); !errors.Is(err, client.ErrNotRegistered) {
		t.Fatalf("unregistered log err = %v, want ErrNotRegistered", err)
	}

	cl := client.New(srv.URL, client.WithToken(mint(t, tokens, "company1")))
	if _, err := cl.LogEmissions(ctx, client.LogEmissionsRequest{
		Scope: 4, Amount: 1, DocHash: zeroHashHex, ReportingPeriod: "2025",
	}); !errors.Is(err, client.ErrInvalidInput) {
		t.Fatalf("bad scope err = %v, want ErrInvalidInput", err)
	}

	if _, err := cl.GetEmission(ctx, "company1", 99); !errors.Is(err, client.ErrNotFound) {
		t.Fatalf("missing entry err = %v, want ErrNotFound", err)
	}

	anon := client.New(srv.URL)
	if _, err := anon.LogEmissions(ctx, client.LogEmissionsRequest{
		Scope: 1, Amount: 1, DocHash: zeroHashHex, ReportingPeriod: "2025",
	}); !errors.Is(err, client.ErrUnauthorized) {
		t.Fatalf("anonymous log err = %v, want ErrUnauthorized", err)
	}
}
