package events_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carbonledger/carbonledger/internal/events"
	"github.com/carbonledger/carbonledger/internal/ledger"
	"go.uber.org/zap"
)

var ctx = context.Background()

type delivery struct {
	body []byte
	sig  string
}

func TestWebhookEmitter_deliversSignedEvent(t *testing.T) {
	got := make(chan delivery, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- delivery{body: body, sig: r.Header.Get("X-Ledger-Signature")}
	}))
	defer srv.Close()

	em := events.NewWebhookEmitter([]string{srv.URL}, "topsecret", zap.NewNop())
	em.Emit(ctx, ledger.Event{
		Type:    ledger.EventLogged,
		Company: "acme",
		EntryID: 7,
		Actor:   "acme",
	})

	var d delivery
	select {
	case d = <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery within 2s")
	}

	mac := hmac.New(sha256.New, []byte("topsecret"))
	mac.Write(d.body)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if d.sig != want {
		t.Errorf("signature = %q, want %q", d.sig, want)
	}

	var env struct {
		ID    string       `json:"id"`
		Event ledger.Event `json:"event"`
	}
	if err := json.Unmarshal(d.body, &env); err != nil {
		t.Fatal(err)
	}
	if env.ID == "" {
		t.Error("envelope should carry a delivery id")
	}
	if env.Event.Type != ledger.EventLogged || env.Event.Company != "acme" || env.Event.EntryID != 7 {
		t.Errorf("event = %+v", env.Event)
	}
}

func TestWebhookEmitter_retriesAndRecordsFailures(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var failures atomic.Int32
	em := events.NewWebhookEmitter([]string{srv.URL}, "s", zap.NewNop())
	em.SetMetricsRecorder(func(success bool) {
		if !success {
			failures.Add(1)
		}
	})
	em.Emit(ctx, ledger.Event{Type: ledger.EventVerified, Company: "acme"})

	deadline := time.Now().Add(6 * time.Second)
	for attempts.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if n := attempts.Load(); n != 3 {
		t.Errorf("attempts = %d, want 3", n)
	}
	if n := failures.Load(); n != 3 {
		t.Errorf("recorded failures = %d, want 3", n)
	}
}

type capture struct {
	events []ledger.Event
}

func (c *capture) Emit(_ context.Context, ev ledger.Event) {
	c.events = append(c.events, ev)
}

func TestMulti_fansOutInOrder(t *testing.T) {
	a, b := &capture{}, &capture{}
	m := events.Multi{a, b}
	m.Emit(ctx, ledger.Event{Type: ledger.EventUpdated})

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("fan-out missed a sink: %d, %d", len(a.events), len(b.events))
	}
}
