// Package service implements the single sign-on bridge between the control
// plane and the admin application. It verifies control plane tokens, resolves
// or provisions the admin identity they vouch for, issues local sessions, and
// coordinates revocation and sign-out.
package service

import (
	"errors"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/ssobridge/pkg/ssotoken"
	"git.sr.ht/~jakintosh/ssobridge/pkg/tokens"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingToken            = errors.New("missing token")
	ErrNotConfigured           = errors.New("sso not configured")
	ErrMalformedToken          = errors.New("invalid token format")
	ErrInvalidSignature        = errors.New("invalid token signature")
	ErrInvalidPayload          = errors.New("invalid token payload")
	ErrExpired                 = errors.New("token expired")
	ErrReplayedToken           = errors.New("token already used")
	ErrMissingIdentity         = errors.New("missing email in token")
	ErrProvisioningUnavailable = errors.New("super admin role not found")
	ErrProvisioningFailed      = errors.New("failed to create admin account")
	ErrSessionCreationFailed   = errors.New("failed to create session")
	ErrCredentialInvalid       = errors.New("credential invalid")
	ErrSessionNotFound         = errors.New("session not found")
	ErrInternal                = errors.New("internal error")
)

// PasswordMode controls bcrypt cost for password hashing.
type PasswordMode int

const (
	// PasswordModeProduction uses bcrypt.DefaultCost.
	PasswordModeProduction PasswordMode = iota
	// PasswordModeTesting uses bcrypt.MinCost. It panics outside of go test.
	PasswordModeTesting
)

// Cost returns the bcrypt cost for this mode.
func (m PasswordMode) Cost() int {
	switch m {
	case PasswordModeTesting:
		if !testing.Testing() {
			panic("service: PasswordModeTesting used outside of test environment")
		}
		return bcrypt.MinCost
	default:
		return bcrypt.DefaultCost
	}
}

const (
	DefaultSuperAdminRole  = "super-admin"
	DefaultAdminFirstName  = "Admin"
	DefaultRefreshLifetime = 30 * 24 * time.Hour
	DefaultAccessLifetime  = 30 * time.Minute
)

// Options carries the deployment settings the service reads. Zero values fall
// back to the defaults above; an empty Secret disables token verification.
type Options struct {
	Secret          string
	CPURL           string
	ProjectPublicID string
	SuperAdminRole  string
	AdminFirstName  string
	AdminLastName   string
	RefreshLifetime time.Duration
	AccessLifetime  time.Duration
	TokenLifetime   time.Duration
	Clock           clockwork.Clock
}

func (o Options) withDefaults() Options {
	if o.SuperAdminRole == "" {
		o.SuperAdminRole = DefaultSuperAdminRole
	}
	if o.AdminFirstName == "" {
		o.AdminFirstName = DefaultAdminFirstName
	}
	if o.RefreshLifetime <= 0 {
		o.RefreshLifetime = DefaultRefreshLifetime
	}
	if o.AccessLifetime <= 0 {
		o.AccessLifetime = DefaultAccessLifetime
	}
	if o.TokenLifetime <= 0 {
		o.TokenLifetime = ssotoken.DefaultLifetime
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	return o
}

// Service coordinates verification, provisioning and session operations.
// Persistence is delegated to the store interfaces in store.go.
type Service struct {
	identityStore  IdentityStore
	roleStore      RoleStore
	sessionStore   SessionStore
	nonces         NonceStore
	tokenIssuer    tokens.Issuer
	tokenValidator tokens.Validator
	options        Options
	passwordMode   PasswordMode
	log            *logrus.Logger
}

func New(
	identityStore IdentityStore,
	roleStore RoleStore,
	sessionStore SessionStore,
	nonces NonceStore,
	issuer tokens.Issuer,
	validator tokens.Validator,
	options Options,
	passwordMode PasswordMode,
	log *logrus.Logger,
) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		identityStore:  identityStore,
		roleStore:      roleStore,
		sessionStore:   sessionStore,
		nonces:         nonces,
		tokenIssuer:    issuer,
		tokenValidator: validator,
		options:        options.withDefaults(),
		passwordMode:   passwordMode,
		log:            log,
	}
}

// Outcome labels an error from the verification and login path for logs and
// metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, ErrMissingToken):
		return "missing_token"
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, ErrMalformedToken):
		return "malformed"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrInvalidPayload):
		return "invalid_payload"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrReplayedToken):
		return "replayed"
	case errors.Is(err, ErrMissingIdentity):
		return "missing_identity"
	case errors.Is(err, ErrProvisioningUnavailable):
		return "provisioning_unavailable"
	case errors.Is(err, ErrProvisioningFailed):
		return "provisioning_failed"
	case errors.Is(err, ErrSessionCreationFailed):
		return "session_failed"
	default:
		return "internal"
	}
}
