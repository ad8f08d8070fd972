// Package client provides the Go SDK for the carbon ledger API: logging
// disclosures, layering corrections, recording attestations, and the
// admin and read-only surfaces.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Sentinel errors mirroring the service's error kinds. Responses carry a
// stable machine-readable code; every returned error wraps one of these
// so callers can branch with errors.Is.
var (
	ErrPaused         = errors.New("ledger is paused")
	ErrNotRegistered  = errors.New("company not registered")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidInput   = errors.New("invalid input")
	ErrAlreadyLogged  = errors.New("entry already logged")
	ErrInvalidVersion = errors.New("invalid version")
	ErrNotFound       = errors.New("not found")
	ErrOverflow       = errors.New("amount sum overflow")
)

var codeErrors = map[string]error{
	"paused":          ErrPaused,
	"not_registered":  ErrNotRegistered,
	"unauthorized":    ErrUnauthorized,
	"invalid_input":   ErrInvalidInput,
	"already_logged":  ErrAlreadyLogged,
	"invalid_version": ErrInvalidVersion,
	"not_found":       ErrNotFound,
	"overflow":        ErrOverflow,
}

// Emission is the entry record returned by GetEmission.
type Emission struct {
	Company         string    `json:"company"`
	ID              uint64    `json:"id"`
	Scope           uint64    `json:"scope"`
	Amount          uint64    `json:"amount"`
	DocHash         string    `json:"doc_hash"` // hex-encoded
	ReportingPeriod string    `json:"reporting_period"`
	Metadata        string    `json:"metadata"`
	Timestamp       time.Time `json:"timestamp"`
}

// EmissionVersion is the correction record returned by GetVersion.
type EmissionVersion struct {
	Company       string    `json:"company"`
	EntryID       uint64    `json:"entry_id"`
	Version       uint64    `json:"version"`
	UpdatedAmount uint64    `json:"updated_amount"`
	UpdateReason  string    `json:"update_reason"`
	Updater       string    `json:"updater"`
	Timestamp     time.Time `json:"timestamp"`
}

// Verification is the attestation record returned by GetVerification.
type Verification struct {
	Company   string    `json:"company"`
	EntryID   uint64    `json:"entry_id"`
	Auditor   string    `json:"auditor"`
	Verified  bool      `json:"verified"`
	Notes     string    `json:"notes"`
	Timestamp time.Time `json:"timestamp"`
}

// Settings is a company's reporting preferences.
type Settings struct {
	Company            string `json:"company"`
	ReportingFrequency string `json:"reporting_frequency"`
	AutoAggregate      bool   `json:"auto_aggregate"`
}

// Overview summarises ledger-wide state.
type Overview struct {
	Entries uint64 `json:"entries"`
	Paused  bool   `json:"paused"`
	Admin   string `json:"admin"`
}

// Total is the result of a range aggregation.
type Total struct {
	Company string `json:"company"`
	Start   uint64 `json:"start"`
	End     uint64 `json:"end"`
	Total   uint64 `json:"total"`
}

// LogEmissionsRequest is the payload for LogEmissions. DocHash is the
// hex-encoded 32-byte digest of the supporting document.
type LogEmissionsRequest struct {
	Scope           uint64 `json:"scope"`
	Amount          uint64 `json:"amount"`
	DocHash         string `json:"doc_hash"`
	ReportingPeriod string `json:"reporting_period"`
	Metadata        string `json:"metadata,omitempty"`
}

// Client talks to a carbon ledger service.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithToken sets the bearer token used on mutating calls.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client for the service at baseURL. baseURL is the
// server root (e.g. http://localhost:8080); request paths carry the
// /api/v1 prefix themselves.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do performs one API call, decoding a JSON response into out (which
// may be nil) and mapping error codes to sentinel errors.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		_ = json.Unmarshal(data, &apiErr)
		if sentinel, ok := codeErrors[apiErr.Code]; ok {
			return fmt.Errorf("%w: %s", sentinel, apiErr.Error)
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Error)
		}
		return fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, apiErr.Error)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// LogEmissions appends a disclosure entry for the authenticated company
// and returns the assigned entry id.
func (c *Client) LogEmissions(ctx context.Context, req LogEmissionsRequest) (uint64, error) {
	var out struct {
		EntryID uint64 `json:"entry_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/emissions", req, &out); err != nil {
		return 0, err
	}
	return out.EntryID, nil
}

// UpdateEmission layers a correction version on one of the
// authenticated company's entries.
func (c *Client) UpdateEmission(ctx context.Context, entryID, updatedAmount uint64, reason string, version uint64) error {
	body := map[string]any{
		"updated_amount": updatedAmount,
		"update_reason":  reason,
		"version":        version,
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/emissions/%d/versions", entryID), body, nil)
}

// VerifyEmission records the authenticated auditor's attestation for
// the given company entry.
func (c *Client) VerifyEmission(ctx context.Context, company string, entryID uint64, verified bool, notes string) error {
	body := map[string]any{"verified": verified, "notes": notes}
	path := fmt.Sprintf("/api/v1/companies/%s/emissions/%d/verification", url.PathEscape(company), entryID)
	return c.do(ctx, http.MethodPut, path, body, nil)
}

// SetSettings upserts the authenticated company's reporting
// preferences.
func (c *Client) SetSettings(ctx context.Context, frequency string, autoAggregate bool) error {
	body := map[string]any{"reporting_frequency": frequency, "auto_aggregate": autoAggregate}
	return c.do(ctx, http.MethodPut, "/api/v1/settings", body, nil)
}

// Pause turns the ledger's kill switch on. Admin only.
func (c *Client) Pause(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/admin/pause", nil, nil)
}

// Unpause turns the ledger's kill switch off. Admin only.
func (c *Client) Unpause(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/admin/unpause", nil, nil)
}

// AddAuditor grants auditor rights. Admin only.
func (c *Client) AddAuditor(ctx context.Context, auditor string) error {
	return c.do(ctx, http.MethodPut, "/api/v1/admin/auditors/"+url.PathEscape(auditor), nil, nil)
}

// RemoveAuditor revokes auditor rights. Admin only.
func (c *Client) RemoveAuditor(ctx context.Context, auditor string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/admin/auditors/"+url.PathEscape(auditor), nil, nil)
}

// GetEmission fetches one disclosure entry.
func (c *Client) GetEmission(ctx context.Context, company string, entryID uint64) (*Emission, error) {
	out := &Emission{}
	path := fmt.Sprintf("/api/v1/companies/%s/emissions/%d", url.PathEscape(company), entryID)
	if err := c.do(ctx, http.MethodGet, path, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetVersion fetches one correction record.
func (c *Client) GetVersion(ctx context.Context, company string, entryID, version uint64) (*EmissionVersion, error) {
	out := &EmissionVersion{}
	path := fmt.Sprintf("/api/v1/companies/%s/emissions/%d/versions/%d", url.PathEscape(company), entryID, version)
	if err := c.do(ctx, http.MethodGet, path, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetVerification fetches the attestation slot for an entry.
func (c *Client) GetVerification(ctx context.Context, company string, entryID uint64) (*Verification, error) {
	out := &Verification{}
	path := fmt.Sprintf("/api/v1/companies/%s/emissions/%d/verification", url.PathEscape(company), entryID)
	if err := c.do(ctx, http.MethodGet, path, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSettings fetches a company's reporting preferences.
func (c *Client) GetSettings(ctx context.Context, company string) (*Settings, error) {
	out := &Settings{}
	if err := c.do(ctx, http.MethodGet, "/api/v1/companies/"+url.PathEscape(company)+"/settings", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// IsAuditor reports whether the principal holds an auditor grant.
func (c *Client) IsAuditor(ctx context.Context, auditor string) (bool, error) {
	var out struct {
		Authorized bool `json:"authorized"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/auditors/"+url.PathEscape(auditor), nil, &out); err != nil {
		return false, err
	}
	return out.Authorized, nil
}

// TotalEmissions sums a company's entry amounts over an id range.
func (c *Client) TotalEmissions(ctx context.Context, company string, start, end uint64) (*Total, error) {
	out := &Total{}
	path := fmt.Sprintf("/api/v1/companies/%s/total?start=%d&end=%d", url.PathEscape(company), start, end)
	if err := c.do(ctx, http.MethodGet, path, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOverview fetches ledger-wide state.
func (c *Client) GetOverview(ctx context.Context) (*Overview, error) {
	out := &Overview{}
	if err := c.do(ctx, http.MethodGet, "/api/v1/ledger", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}
