// Package jwtx signs and verifies the compact tokens carried in the session
// cookie. The browser never sees raw session state; it holds an HS256-signed
// reference to a server-side session row, making the cookie tamper-evident.
package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken reports a missing, malformed, expired or tampered token.
	ErrInvalidToken = errors.New("jwtx: invalid session token")
)

// SessionSigner issues and verifies session reference tokens using a single
// symmetric key.
type SessionSigner struct {
	key    []byte
	issuer string
}

func NewSessionSigner(key []byte, issuer string) *SessionSigner {
	return &SessionSigner{key: key, issuer: issuer}
}

// Sign produces a signed token referencing the session with the given ID.
// The token expiry mirrors the server-side session expiry so a stale cookie
// fails fast without a store lookup.
func (s *SessionSigner) Sign(sessionID string, issuedAt, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.key)
}

// Verify checks the token signature, issuer and expiry and returns the
// referenced session ID.
func (s *SessionSigner) Verify(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.key, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
