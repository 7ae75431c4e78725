// Package ssotest mints control plane tokens for tests of code that consumes
// the single sign-on bridge.
package ssotest

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"git.sr.ht/~jakintosh/ssobridge/pkg/ssotoken"
)

// DefaultTTL mirrors the lifetime the control plane gives its tokens.
const DefaultTTL = 30 * time.Second

// Minter signs tokens with a shared secret at a fixed or moving clock.
type Minter struct {
	Secret []byte
	Now    func() time.Time
}

// NewMinter returns a Minter using the wall clock.
func NewMinter(secret string) *Minter {
	return &Minter{
		Secret: []byte(secret),
		Now:    time.Now,
	}
}

// Token mints a fresh token for email with a random nonce and DefaultTTL.
func (m *Minter) Token(email string) (string, error) {
	return m.TokenWithTTL(email, DefaultTTL)
}

// TokenWithTTL mints a fresh token for email expiring ttl from now.
func (m *Minter) TokenWithTTL(email string, ttl time.Duration) (string, error) {
	nonce, err := Nonce()
	if err != nil {
		return "", err
	}
	now := m.Now()
	return m.Payload(ssotoken.Payload{
		Email:     email,
		Nonce:     nonce,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	})
}

// Payload signs an arbitrary payload.
func (m *Minter) Payload(payload ssotoken.Payload) (string, error) {
	return ssotoken.Encode(m.Secret, payload)
}

// Expired mints a token whose expiry is one second in the past.
func (m *Minter) Expired(email string) (string, error) {
	nonce, err := Nonce()
	if err != nil {
		return "", err
	}
	now := m.Now()
	return m.Payload(ssotoken.Payload{
		Email:     email,
		Nonce:     nonce,
		IssuedAt:  now.Add(-DefaultTTL).Unix(),
		ExpiresAt: now.Unix() - 1,
	})
}

// Nonce returns a random hex nonce.
func Nonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %v", err)
	}
	return hex.EncodeToString(b), nil
}

// Tamper flips one character of the token at index i, staying inside the
// base64url alphabet so the token still splits and decodes.
func Tamper(token string, i int) string {
	b := []byte(token)
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}
