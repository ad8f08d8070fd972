// Package identity issues and verifies the bearer tokens that carry
// caller principals across the HTTP surface. The ledger core itself
// never sees tokens — by the time an operation runs, the caller is just
// a principal string.
package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the JWT claims for a ledger access token. The subject is
// the principal the engine sees as the caller.
type Claims struct {
	jwt.RegisteredClaims
	Principal string `json:"principal"`
}

// TokenIssuer issues and verifies principal tokens signed with HS256.
// The signing secret is shared between the service and the operator
// tooling that mints tokens; per-principal key material and wallet
// mechanics live outside the ledger.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer.
//
//	issuerURL — the "iss" claim value; typically the service's base URL.
//	ttl       — token lifetime (default: 1 hour).
func NewTokenIssuer(secret []byte, issuerURL string, ttl time.Duration) *TokenIssuer {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &TokenIssuer{secret: secret, issuer: issuerURL, ttl: ttl}
}

// Issue creates a signed token carrying the given principal.
func (t *TokenIssuer) Issue(principal string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   principal,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.New().String(),
		},
		Principal: principal,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning its claims on success.
func (t *TokenIssuer) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return t.secret, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Principal == "" {
		claims.Principal = claims.Subject
	}
	if claims.Principal == "" {
		return nil, fmt.Errorf("token carries no principal")
	}
	return claims, nil
}
