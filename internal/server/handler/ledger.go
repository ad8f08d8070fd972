package handler

import (
	"encoding/hex"
	"net/http"
	"strconv"

	"github.com/carbonledger/carbonledger/internal/ledger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LedgerHandler exposes the disclosure, correction, attestation, and
// aggregation endpoints.
type LedgerHandler struct {
	engine *ledger.Engine
	logger *zap.Logger
}

// NewLedgerHandler creates a LedgerHandler.
func NewLedgerHandler(engine *ledger.Engine, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{engine: engine, logger: logger}
}

// Register mounts the read-only routes on public and the mutating
// routes on authed (which must carry the Auth middleware).
func (h *LedgerHandler) Register(public, authed *gin.RouterGroup) {
	public.GET("/ledger", h.Overview)
	public.GET("/companies/:company/emissions/:id", h.GetEmission)
	public.GET("/companies/:company/emissions/:id/versions/:version", h.GetVersion)
	public.GET("/companies/:company/emissions/:id/verification", h.GetVerification)
	public.GET("/companies/:company/total", h.Total)
	public.GET("/companies/:company/settings", h.GetSettings)
	public.GET("/auditors/:auditor", h.IsAuditor)

	authed.POST("/emissions", h.LogEmissions)
	authed.POST("/emissions/:id/versions", h.UpdateEmission)
	authed.PUT("/companies/:company/emissions/:id/verification", h.VerifyEmission)
	authed.PUT("/settings", h.SetSettings)
}

func parseID(c *gin.Context, param string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": param + " must be a non-negative integer",
			"code":  CodeInvalidInput,
		})
		return 0, false
	}
	return id, true
}

type logEmissionsRequest struct {
	Scope           uint64 `json:"scope"`
	Amount          uint64 `json:"amount"`
	DocHash         string `json:"doc_hash"` // hex-encoded 32-byte digest
	ReportingPeriod string `json:"reporting_period"`
	Metadata        string `json:"metadata"`
}

// LogEmissions handles POST /emissions — appends a disclosure entry for
// the calling company and returns the assigned entry id.
func (h *LedgerHandler) LogEmissions(c *gin.Context) {
	var req logEmissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": CodeInvalidInput})
		return
	}

	// Digest arrives hex-encoded; un-decodable input can never be a
	// valid 32-byte digest, so it shares the invalid-input signal.
	docHash, err := hex.DecodeString(req.DocHash)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "doc_hash must be hex", "code": CodeInvalidInput})
		return
	}

	id, err := h.engine.LogEmissions(c.Request.Context(), caller(c),
		req.Scope, req.Amount, docHash, req.ReportingPeriod, req.Metadata)
	RecordOperation("log", err)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"entry_id": id})
}

type updateEmissionRequest struct {
	UpdatedAmount uint64 `json:"updated_amount"`
	UpdateReason  string `json:"update_reason"`
	Version       uint64 `json:"version"`
}

// UpdateEmission handles POST /emissions/:id/versions — layers a
// correction version on one of the caller's entries.
func (h *LedgerHandler) UpdateEmission(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req updateEmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": CodeInvalidInput})
		return
	}

	err := h.engine.UpdateEmission(c.Request.Context(), caller(c),
		id, req.UpdatedAmount, req.UpdateReason, req.Version)
	RecordOperation("update", err)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entry_id": id, "version": req.Version})
}

type verifyEmissionRequest struct {
	Verified bool   `json:"verified"`
	Notes    string `json:"notes"`
}

// VerifyEmission handles PUT /companies/:company/emissions/:id/verification —
// records the calling auditor's attestation.
func (h *LedgerHandler) VerifyEmission(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req verifyEmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": CodeInvalidInput})
		return
	}

	company := ledger.Principal(c.Param("company"))
	err := h.engine.VerifyEmission(c.Request.Context(), caller(c),
		company, id, req.Verified, req.Notes)
	RecordOperation("verify", err)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"company": company, "entry_id": id})
}

type setSettingsRequest struct {
	ReportingFrequency string `json:"reporting_frequency"`
	AutoAggregate      bool   `json:"auto_aggregate"`
}

// SetSettings handles PUT /settings — upserts the calling company's
// reporting preferences.
func (h *LedgerHandler) SetSettings(c *gin.Context) {
	var req setSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": CodeInvalidInput})
		return
	}

	err := h.engine.SetCompanySettings(c.Request.Context(), caller(c),
		req.ReportingFrequency, req.AutoAggregate)
	RecordOperation("set_settings", err)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Overview handles GET /ledger — total entries, pause state, and the
// admin principal.
func (h *LedgerHandler) Overview(c *gin.Context) {
	ctx := c.Request.Context()

	n, err := h.engine.TotalEntries(ctx)
	if err != nil {
		h.logger.Error("ledger overview", zap.Error(err))
		writeError(c, err)
		return
	}
	paused, err := h.engine.Paused(ctx)
	if err != nil {
		h.logger.Error("ledger overview", zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": n,
		"paused":  paused,
		"admin":   h.engine.Admin(),
	})
}

// GetEmission handles GET /companies/:company/emissions/:id.
func (h *LedgerHandler) GetEmission(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	entry, err := h.engine.GetEmission(c.Request.Context(), ledger.Principal(c.Param("company")), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, emissionResponse(entry))
}

// emissionResponse renders an entry with its digest hex-encoded, the
// same form it was submitted in.
func emissionResponse(e *ledger.Entry) gin.H {
	return gin.H{
		"company":          e.Company,
		"id":               e.ID,
		"scope":            e.Scope,
		"amount":           e.Amount,
		"doc_hash":         hex.EncodeToString(e.DocHash),
		"reporting_period": e.ReportingPeriod,
		"metadata":         e.Metadata,
		"timestamp":        e.Timestamp,
	}
}

// GetVersion handles GET /companies/:company/emissions/:id/versions/:version.
func (h *LedgerHandler) GetVersion(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	version, ok := parseID(c, "version")
	if !ok {
		return
	}
	v, err := h.engine.GetEmissionVersion(c.Request.Context(), ledger.Principal(c.Param("company")), id, version)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// GetVerification handles GET /companies/:company/emissions/:id/verification.
func (h *LedgerHandler) GetVerification(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	v, err := h.engine.GetVerification(c.Request.Context(), ledger.Principal(c.Param("company")), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Total handles GET /companies/:company/total?start=&end= — the bounded
// range aggregation.
func (h *LedgerHandler) Total(c *gin.Context) {
	start, err := strconv.ParseUint(c.DefaultQuery("start", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be a non-negative integer", "code": CodeInvalidInput})
		return
	}
	end, err := strconv.ParseUint(c.DefaultQuery("end", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be a non-negative integer", "code": CodeInvalidInput})
		return
	}

	company := ledger.Principal(c.Param("company"))
	total, err := h.engine.TotalEmissions(c.Request.Context(), company, start, end)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"company": company,
		"start":   start,
		"end":     end,
		"total":   total,
	})
}

// GetSettings handles GET /companies/:company/settings.
func (h *LedgerHandler) GetSettings(c *gin.Context) {
	st, err := h.engine.GetCompanySettings(c.Request.Context(), ledger.Principal(c.Param("company")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// IsAuditor handles GET /auditors/:auditor — reports whether the
// principal holds an auditor grant.
func (h *LedgerHandler) IsAuditor(c *gin.Context) {
	auditor := ledger.Principal(c.Param("auditor"))
	ok, err := h.engine.IsAuditor(c.Request.Context(), auditor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auditor": auditor, "authorized": ok})
}
