package service

import (
	"context"
	"fmt"

	"git.sr.ht/~jakintosh/ssobridge/pkg/ssotoken"
)

// Verify runs the full check on a control plane token: signature, payload,
// expiry and lifetime, then the one-time nonce. A token that passes has consumed its nonce
// and is never accepted again.
func (s *Service) Verify(
	ctx context.Context,
	raw string,
) (
	*ssotoken.Payload,
	error,
) {
	payload, err := s.Inspect(raw)
	if err != nil {
		return nil, err
	}

	now := s.options.Clock.Now()
	if payload.Expired(now) {
		return nil, ErrExpired
	}
	// a bounded lifetime keeps every live token inside the nonce retention
	if err := payload.CheckLifetime(now, s.options.TokenLifetime); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if payload.Nonce == "" {
		return nil, fmt.Errorf("%w: missing nonce", ErrReplayedToken)
	}
	fresh, err := s.nonces.CheckAndInsert(ctx, payload.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: couldn't record nonce: %v", ErrInternal, err)
	}
	if !fresh {
		return nil, ErrReplayedToken
	}

	if payload.Email == "" {
		return nil, ErrMissingIdentity
	}

	return payload, nil
}

// Inspect checks the signature and decodes the payload without looking at
// expiry or the nonce.
func (s *Service) Inspect(raw string) (*ssotoken.Payload, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}
	if s.options.Secret == "" {
		return nil, ErrNotConfigured
	}

	segment, signature, err := ssotoken.Split(raw)
	if err != nil {
		return nil, ErrMalformedToken
	}

	if err := ssotoken.VerifySignature([]byte(s.options.Secret), segment, signature); err != nil {
		return nil, ErrInvalidSignature
	}

	payload, err := ssotoken.DecodePayload(segment)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	return payload, nil
}
