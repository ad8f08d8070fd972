// Package handler exposes the ledger's operations over HTTP.
package handler

import (
	"net/http"
	"strings"

	"github.com/carbonledger/carbonledger/internal/identity"
	"github.com/carbonledger/carbonledger/internal/ledger"
	"github.com/gin-gonic/gin"
)

// principalKey is the gin context key the auth middleware stores the
// verified caller principal under.
const principalKey = "principal"

// Auth returns middleware that verifies the bearer token and stores the
// caller principal in the request context. Every mutating ledger route
// needs a caller identity, so requests without a valid token are
// rejected outright.
func Auth(tokens *identity.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(principalKey, ledger.Principal(claims.Principal))
		c.Next()
	}
}

// caller returns the principal the auth middleware attached.
func caller(c *gin.Context) ledger.Principal {
	v, _ := c.Get(principalKey)
	p, _ := v.(ledger.Principal)
	return p
}
