// Package ssotoken implements the single sign-on token handed out by the
// control plane:
//
//	base64url(JSON payload) + "." + base64url(HMAC-SHA256(payload segment))
//
// The signature covers the encoded payload segment exactly as transmitted, so
// verification never has to re-serialize the payload.
package ssotoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	errTokenMalformed    = errors.New("token malformed")
	errTokenBadSignature = errors.New("token bad signature")
	errPayloadInvalid    = errors.New("token payload invalid")
)

func ErrTokenMalformed() error    { return errTokenMalformed }
func ErrTokenBadSignature() error { return errTokenBadSignature }
func ErrPayloadInvalid() error    { return errPayloadInvalid }

// Payload is the decoded claims section of a control plane token.
type Payload struct {
	Email     string `json:"email"`
	Nonce     string `json:"nonce"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Expired reports whether the payload is expired at now. A missing expiry
// counts as expired; a token is still valid during its expiry second.
func (p *Payload) Expired(now time.Time) bool {
	return p.ExpiresAt == 0 || now.Unix() > p.ExpiresAt
}

const (
	// DefaultLifetime is the longest a control plane token may live.
	DefaultLifetime = 30 * time.Second
	// ClockSkew is how far ahead of this server the control plane's clock
	// may run.
	ClockSkew = 5 * time.Second
)

// CheckLifetime rejects a payload whose expiry does not follow its issue
// time, that was issued for longer than max, or that expires further than
// max (plus ClockSkew) from now.
func (p *Payload) CheckLifetime(now time.Time, max time.Duration) error {
	if p.ExpiresAt <= p.IssuedAt {
		return fmt.Errorf("%w: expiry not after issue time", errPayloadInvalid)
	}
	limit := int64(max / time.Second)
	if p.ExpiresAt-p.IssuedAt > limit {
		return fmt.Errorf("%w: lifetime exceeds %s", errPayloadInvalid, max)
	}
	if p.ExpiresAt-now.Unix() > limit+int64(ClockSkew/time.Second) {
		return fmt.Errorf("%w: expiry too far in the future", errPayloadInvalid)
	}
	return nil
}

// Split separates a raw token into its payload segment and signature on the
// last '.' in the string.
func Split(raw string) (
	payloadSegment string,
	signature string,
	err error,
) {
	i := strings.LastIndex(raw, ".")
	if i == -1 {
		return "", "", errTokenMalformed
	}
	return raw[:i], raw[i+1:], nil
}

// Sign computes the encoded signature for a payload segment.
func Sign(secret []byte, payloadSegment string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payloadSegment))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature against the expected signature for the
// payload segment. Lengths are compared first; the byte comparison itself is
// constant time.
func VerifySignature(
	secret []byte,
	payloadSegment string,
	signature string,
) error {
	expected := Sign(secret, payloadSegment)
	if len(signature) != len(expected) {
		return errTokenBadSignature
	}
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return errTokenBadSignature
	}
	return nil
}

// DecodePayload decodes and parses a payload segment. Padded and unpadded
// base64url are both accepted.
func DecodePayload(payloadSegment string) (*Payload, error) {
	bytes, err := base64.RawURLEncoding.DecodeString(payloadSegment)
	if err != nil {
		bytes, err = base64.URLEncoding.DecodeString(payloadSegment)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid base64 encoding: %v", errPayloadInvalid, err)
		}
	}

	payload := &Payload{}
	if err := json.Unmarshal(bytes, payload); err != nil {
		return nil, fmt.Errorf("%w: not valid JSON: %v", errPayloadInvalid, err)
	}
	return payload, nil
}

// Encode serializes and signs a payload.
func Encode(secret []byte, payload Payload) (string, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("json marshal failure: %v", err)
	}
	segment := base64.RawURLEncoding.EncodeToString(payloadJSON)
	return fmt.Sprintf("%s.%s", segment, Sign(secret, segment)), nil
}
