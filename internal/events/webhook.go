package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/carbonledger/carbonledger/internal/ledger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MetricsRecorder is an optional callback recording delivery outcomes.
type MetricsRecorder func(success bool)

// WebhookEmitter POSTs each event as JSON to a fixed set of endpoints,
// signing the body with HMAC-SHA256 so receivers can authenticate the
// sender. Emit returns immediately; each endpoint is delivered to in its
// own goroutine with a small number of retries, and failures are logged
// rather than propagated.
type WebhookEmitter struct {
	endpoints  []string
	secret     string
	httpClient *http.Client
	onMetrics  MetricsRecorder
	logger     *zap.Logger
}

// NewWebhookEmitter creates a WebhookEmitter for the given endpoints.
func NewWebhookEmitter(endpoints []string, secret string, logger *zap.Logger) *WebhookEmitter {
	return &WebhookEmitter{
		endpoints:  endpoints,
		secret:     secret,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// SetMetricsRecorder configures the metrics callback.
func (e *WebhookEmitter) SetMetricsRecorder(fn MetricsRecorder) {
	e.onMetrics = fn
}

// envelope is the wire form of a delivered event. The ID is unique per
// emission so receivers can deduplicate retried deliveries.
type envelope struct {
	ID    string       `json:"id"`
	Event ledger.Event `json:"event"`
}

// Emit implements ledger.Emitter.
// The engine calls Emit while holding its write lock, so delivery must
// not block; it detaches from the caller's context deliberately.
func (e *WebhookEmitter) Emit(_ context.Context, ev ledger.Event) {
	body, err := json.Marshal(envelope{ID: uuid.New().String(), Event: ev})
	if err != nil {
		e.logger.Error("webhook: marshal event", zap.Error(err))
		return
	}
	signature := sign(body, e.secret)

	for _, url := range e.endpoints {
		go e.deliver(url, body, signature)
	}
}

// deliver sends one payload to one endpoint with retries.
// Backoff doubles per attempt: 1s, 2s.
func (e *WebhookEmitter) deliver(url string, body []byte, signature string) {
	const attempts = 3
	delay := time.Second

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			time.Sleep(delay)
			delay *= 2
		}

		success, errMsg := e.post(url, body, signature)
		if e.onMetrics != nil {
			e.onMetrics(success)
		}
		if success {
			return
		}

		e.logger.Warn("webhook: delivery failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.String("error", errMsg),
		)
	}
}

// post performs a single HTTP POST delivery.
func (e *WebhookEmitter) post(url string, body []byte, signature string) (bool, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, err.Error()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Ledger-Signature", signature)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return false, err.Error()
	}
	defer resp.Body.Close()
	io.ReadAll(io.LimitReader(resp.Body, 1024)) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return true, ""
}

// sign computes the HMAC-SHA256 signature header value for body.
func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
