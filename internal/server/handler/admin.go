package handler

import (
	"net/http"

	"github.com/carbonledger/carbonledger/internal/ledger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler exposes the admin-gated operations: the pause switch and
// the auditor set. Authorization is the engine's job — these handlers
// just pass the caller through, so a non-admin gets the engine's
// unauthorized signal rather than a route-level gate.
type AdminHandler struct {
	engine *ledger.Engine
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(engine *ledger.Engine, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{engine: engine, logger: logger}
}

// Register mounts the admin routes on the given (authed) router group.
func (h *AdminHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/admin")
	{
		a.POST("/pause", h.Pause)
		a.POST("/unpause", h.Unpause)
		a.PUT("/auditors/:auditor", h.AddAuditor)
		a.DELETE("/auditors/:auditor", h.RemoveAuditor)
	}
}

// Pause handles POST /admin/pause.
func (h *AdminHandler) Pause(c *gin.Context) {
	if err := h.engine.Pause(c.Request.Context(), caller(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": true})
}

// Unpause handles POST /admin/unpause.
func (h *AdminHandler) Unpause(c *gin.Context) {
	if err := h.engine.Unpause(c.Request.Context(), caller(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": false})
}

// AddAuditor handles PUT /admin/auditors/:auditor.
func (h *AdminHandler) AddAuditor(c *gin.Context) {
	auditor := ledger.Principal(c.Param("auditor"))
	if err := h.engine.AddAuditor(c.Request.Context(), caller(c), auditor); err != nil {
		writeError(c, err)
		return
	}
	h.logger.Info("auditor added",
		zap.String("auditor", string(auditor)),
		zap.String("by", string(caller(c))),
	)
	c.JSON(http.StatusOK, gin.H{"auditor": auditor, "authorized": true})
}

// RemoveAuditor handles DELETE /admin/auditors/:auditor.
func (h *AdminHandler) RemoveAuditor(c *gin.Context) {
	auditor := ledger.Principal(c.Param("auditor"))
	if err := h.engine.RemoveAuditor(c.Request.Context(), caller(c), auditor); err != nil {
		writeError(c, err)
		return
	}
	h.logger.Info("auditor removed",
		zap.String("auditor", string(auditor)),
		zap.String("by", string(caller(c))),
	)
	c.JSON(http.StatusOK, gin.H{"auditor": auditor, "authorized": false})
}
