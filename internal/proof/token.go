// Package proof implements the attendance proof credentials: signed QR tokens
// and short manual codes bound to a session.
package proof

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failures distinguished by callers.
var (
	ErrInvalidSignature = errors.New("proof signature invalid")
	ErrExpired          = errors.New("proof expired")
)

// Claims is the self-contained payload carried by a QR proof token. The JSON
// field names are part of the wire contract and must not change.
type Claims struct {
	SessionID uint   `json:"session_id"`
	Nonce     string `json:"nonce"`
	Subject   string `json:"subject,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec mints and verifies HS256-signed proof tokens.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenCodec builds a codec with the signing secret and validity window.
func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TokenCodec{secret: []byte(secret), ttl: ttl}
}

// TTL returns the validity window applied to minted tokens.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Mint signs a proof for the given session and nonce, valid from issuedAt for
// the codec's window. The subject label is optional display metadata.
func (c *TokenCodec) Mint(sessionID uint, nonce, subject string, issuedAt time.Time) (string, time.Time, error) {
	expiresAt := issuedAt.Add(c.ttl)
	claims := Claims{
		SessionID: sessionID,
		Nonce:     nonce,
		Subject:   subject,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign proof token: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify parses a proof token, checking signature and expiry against now.
// Binding supersession is the caller's concern: a verified token is only
// usable while its nonce matches the session's current binding.
func (c *TokenCodec) Verify(tokenString string, now time.Time) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))

	switch {
	case err == nil && token.Valid:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrExpired
	default:
		return Claims{}, ErrInvalidSignature
	}
}
