// Package assertion mints the short-lived identity assertions the OAuth
// flow presents to the OAuth server on behalf of a signed-in session.
package assertion

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

// DefaultLifetime is how long a minted assertion stays valid.
const DefaultLifetime = 25 * time.Hour

// Signer derives a per-session signing key and mints assertions with it.
type Signer struct {
	lifetime time.Duration
}

// New creates a signer; a non-positive lifetime means DefaultLifetime.
func New(lifetime time.Duration) *Signer {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &Signer{lifetime: lifetime}
}

// sessionKey derives the HMAC key for a session token. The derivation is
// deterministic so a re-minted assertion for the same session verifies with
// the same key.
func sessionKey(sessionToken string) ([]byte, error) {
	raw, err := hex.DecodeString(sessionToken)
	if err != nil {
		return nil, fmt.Errorf("decoding session token: %w", err)
	}

	key := make([]byte, 32)
	r := hkdf.New(sha256.New, raw, nil, []byte("identity.mozilla.com/assertion"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("deriving assertion key: %w", err)
	}
	return key, nil
}

// Sign mints an assertion binding uid to the audience for the session.
func (s *Signer) Sign(uid, sessionToken, audience string) (string, error) {
	key, err := sessionKey(sessionToken)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    "fxa-front",
		Subject:   uid,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("signing assertion: %w", err)
	}
	return signed, nil
}

// Verify parses an assertion minted for the given session and returns its
// subject uid. Used by tests and by the loopback OAuth flow.
func (s *Signer) Verify(assertion, sessionToken string) (string, error) {
	key, err := sessionKey(sessionToken)
	if err != nil {
		return "", err
	}

	token, err := jwt.ParseWithClaims(assertion, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return "", fmt.Errorf("parsing assertion: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid assertion")
	}
	return claims.Subject, nil
}
