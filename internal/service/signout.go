package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"git.sr.ht/~jakintosh/ssobridge/pkg/tokens"
)

// RevokeAll handles control plane initiated revocation. The token goes
// through full verification; every session of the identity it names is then
// deleted. An unknown email revokes nothing. Storage failures after the token
// has been accepted are logged and swallowed, since the credentials expire on
// their own.
func (s *Service) RevokeAll(
	ctx context.Context,
	raw string,
) (
	int64,
	error,
) {
	payload, err := s.Verify(ctx, raw)
	if err != nil {
		return 0, err
	}

	count, err := s.revokeIdentity(payload.Email)
	if err != nil {
		s.log.WithError(err).WithField("email", payload.Email).Error("SSO: failed to revoke sessions")
		return 0, nil
	}
	return count, nil
}

// SignOut is the best-effort revocation behind a browser sign-out hop. The
// token only needs a valid signature, since a sign-out chain across several
// admin instances can outlive the token's expiry. The session backing
// refreshCookie, if any, is dropped as well; the cookie is scoped to the admin
// path, so it only arrives from non-browser callers or when that path is "/".
// Nothing here can fail the hop; the return value is the number of sessions
// removed.
func (s *Service) SignOut(raw string, refreshCookie string) int64 {
	var revoked int64
	if refreshCookie != "" && s.revokeSession(refreshCookie) {
		revoked++
	}

	if raw == "" {
		return revoked
	}

	payload, err := s.Inspect(raw)
	if err != nil {
		s.log.WithField("reason", Outcome(err)).Debug("SSO sign-out: token ignored")
		return revoked
	}
	if payload.Email == "" {
		return revoked
	}

	count, err := s.revokeIdentity(payload.Email)
	if err != nil {
		s.log.WithError(err).WithField("email", payload.Email).Error("SSO sign-out: failed to revoke sessions")
		return revoked
	}
	return revoked + count
}

func (s *Service) revokeIdentity(email string) (int64, error) {
	email = NormalizeEmail(email)

	identity, err := s.identityStore.GetIdentityByEmail(email)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: failed to look up identity: %v", ErrInternal, err)
	}

	count, err := s.sessionStore.DeleteSessionsForIdentity(identity.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to delete sessions: %v", ErrInternal, err)
	}
	s.log.WithField("email", email).WithField("revoked", count).Info("SSO: revoked all sessions")
	return count, nil
}

func (s *Service) revokeSession(encodedRefreshToken string) bool {
	token := tokens.RefreshToken{}
	if err := token.Decode(encodedRefreshToken, s.tokenValidator); err != nil {
		return false
	}
	deleted, err := s.sessionStore.DeleteSession(token.ID())
	if err != nil {
		s.log.WithError(err).Warn("SSO sign-out: failed to drop current session")
		return false
	}
	return deleted
}
