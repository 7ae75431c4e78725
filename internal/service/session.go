package service

import (
	"context"
	"fmt"
	"time"

	"git.sr.ht/~jakintosh/ssobridge/pkg/tokens"
	"github.com/google/uuid"
)

// Session is a freshly issued credential pair for one identity on one device.
type Session struct {
	IdentityID     int64
	DeviceID       string
	RefreshToken   *tokens.RefreshToken
	AccessToken    *tokens.AccessToken
	AbsoluteExpiry time.Time
}

// Login is the result of a successful callback.
type Login struct {
	Identity    *Identity
	Session     *Session
	Provisioned bool
}

// Login verifies a control plane token, resolves its identity and issues a
// session for it.
func (s *Service) Login(
	ctx context.Context,
	raw string,
) (
	*Login,
	error,
) {
	payload, err := s.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}

	identity, provisioned, err := s.resolve(payload.Email)
	if err != nil {
		return nil, err
	}

	session, err := s.IssueSession(identity)
	if err != nil {
		return nil, err
	}

	return &Login{
		Identity:    identity,
		Session:     session,
		Provisioned: provisioned,
	}, nil
}

// IssueSession mints a refresh credential for a new device, stores it, and
// exchanges it for an access credential.
func (s *Service) IssueSession(identity *Identity) (*Session, error) {
	deviceID := uuid.NewString()

	refreshToken, err := s.tokenIssuer.IssueRefreshToken(
		identity.Subject(),
		deviceID,
		s.options.RefreshLifetime,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to issue refresh token: %v", ErrSessionCreationFailed, err)
	}

	if err := s.sessionStore.InsertSession(identity.ID, refreshToken); err != nil {
		return nil, fmt.Errorf("%w: failed to store session: %v", ErrSessionCreationFailed, err)
	}

	accessToken, err := s.Exchange(refreshToken.Encoded())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	return &Session{
		IdentityID:     identity.ID,
		DeviceID:       deviceID,
		RefreshToken:   refreshToken,
		AccessToken:    accessToken,
		AbsoluteExpiry: refreshToken.Expiration(),
	}, nil
}

// Exchange trades a stored refresh credential for a new access credential.
// It fails once the session has been revoked.
func (s *Service) Exchange(encodedRefreshToken string) (*tokens.AccessToken, error) {
	token := tokens.RefreshToken{}
	if err := token.Decode(encodedRefreshToken, s.tokenValidator); err != nil {
		return nil, fmt.Errorf("%w: couldn't decode refresh token: %v", ErrCredentialInvalid, err)
	}

	exists, err := s.sessionStore.SessionExists(token.ID())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to look up session: %v", ErrInternal, err)
	}
	if !exists {
		return nil, ErrSessionNotFound
	}

	accessToken, err := s.tokenIssuer.IssueAccessToken(&token, s.options.AccessLifetime)
	if err != nil {
		return nil, fmt.Errorf("%w: couldn't issue access token: %v", ErrInternal, err)
	}
	return accessToken, nil
}

// SweepSessions drops expired sessions when the session store supports it.
func (s *Service) SweepSessions() (int64, error) {
	sweeper, ok := s.sessionStore.(ExpiredSessionSweeper)
	if !ok {
		return 0, nil
	}
	count, err := sweeper.DeleteExpiredSessions(s.options.Clock.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("%w: failed to sweep sessions: %v", ErrInternal, err)
	}
	if count > 0 {
		s.log.WithField("count", count).Info("swept expired sessions")
	}
	return count, nil
}
