package handler

import (
	"errors"
	"net/http"

	"github.com/carbonledger/carbonledger/internal/ledger"
	"github.com/gin-gonic/gin"
)

// Stable machine-readable error codes for the API surface. pkg/client
// maps these back to the ledger sentinel errors.
const (
	CodePaused         = "paused"
	CodeNotRegistered  = "not_registered"
	CodeUnauthorized   = "unauthorized"
	CodeInvalidInput   = "invalid_input"
	CodeAlreadyLogged  = "already_logged"
	CodeInvalidVersion = "invalid_version"
	CodeNotFound       = "not_found"
	CodeOverflow       = "overflow"
)

// writeError maps a ledger error kind to an HTTP status and a stable
// error code. Unrecognised errors become 500 with no detail leaked.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrPaused):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "code": CodePaused})
	case errors.Is(err, ledger.ErrNotRegistered):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "code": CodeNotRegistered})
	case errors.Is(err, ledger.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "code": CodeUnauthorized})
	case errors.Is(err, ledger.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": CodeInvalidInput})
	case errors.Is(err, ledger.ErrAlreadyLogged):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": CodeAlreadyLogged})
	case errors.Is(err, ledger.ErrInvalidVersion):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": CodeInvalidVersion})
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": CodeNotFound})
	case errors.Is(err, ledger.ErrOverflow):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "code": CodeOverflow})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
