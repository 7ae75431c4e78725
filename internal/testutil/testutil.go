// Package testutil provides test environment setup and utilities for internal package tests.
package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/ssobridge/internal/api"
	"git.sr.ht/~jakintosh/ssobridge/internal/database"
	"git.sr.ht/~jakintosh/ssobridge/internal/metrics"
	"git.sr.ht/~jakintosh/ssobridge/internal/nonce"
	"git.sr.ht/~jakintosh/ssobridge/internal/resources"
	"git.sr.ht/~jakintosh/ssobridge/internal/service"
	"git.sr.ht/~jakintosh/ssobridge/pkg/ssotest"
	"git.sr.ht/~jakintosh/ssobridge/pkg/tokens"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

const (
	TestSecret          = "test-sso-secret"
	TestCPURL           = "https://cp.example.com"
	TestProjectPublicID = "proj_test"
)

var (
	sharedSigningKey     *ecdsa.PrivateKey
	sharedSigningKeyOnce sync.Once
)

// getSharedSigningKey returns a cached ECDSA signing key for tests.
// This avoids the overhead of generating a new key for each test.
func getSharedSigningKey() *ecdsa.PrivateKey {
	sharedSigningKeyOnce.Do(func() {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			panic("failed to generate shared signing key: " + err.Error())
		}
		sharedSigningKey = key
	})
	return sharedSigningKey
}

// TestEnv provides all dependencies needed for testing
type TestEnv struct {
	DB             *database.SQLiteStore
	Service        *service.Service
	Router         http.Handler
	Nonces         *nonce.Memory
	Minter         *ssotest.Minter
	Clock          *clockwork.FakeClock
	Metrics        *metrics.Metrics
	TokenIssuer    tokens.Issuer
	TokenValidator tokens.Validator
	SuperAdmin     *service.Role
}

// EnvOption adjusts the service options before the environment is built.
type EnvOption func(*service.Options)

// WithoutSecret disables token verification.
func WithoutSecret() EnvOption {
	return func(o *service.Options) { o.Secret = "" }
}

// WithoutCP leaves the control plane location unset.
func WithoutCP() EnvOption {
	return func(o *service.Options) {
		o.CPURL = ""
		o.ProjectPublicID = ""
	}
}

// WithSuperAdminRole changes the role code provisioning looks for.
func WithSuperAdminRole(code string) EnvOption {
	return func(o *service.Options) { o.SuperAdminRole = code }
}

// SetupTestEnv creates an isolated test environment with in-memory SQLite,
// a seeded super admin role, and a fake clock shared by the verifier and
// the token minter.
func SetupTestEnv(
	t *testing.T,
	opts ...EnvOption,
) *TestEnv {
	t.Helper()

	// create in-memory SQLite database
	db, err := database.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	// seed the role provisioning binds new admins to
	superAdmin, err := db.InsertRole(service.DefaultSuperAdminRole, "Super Admin")
	if err != nil {
		t.Fatalf("failed to seed role: %v", err)
	}

	// use cached signing key (generated once across all tests)
	signingKey := getSharedSigningKey()

	// create token issuer/validator
	issuer, validator := tokens.InitServer(signingKey, "test.ssobridge.local")

	clock := clockwork.NewFakeClockAt(time.Now())
	nonces := nonce.NewMemory(nonce.DefaultTokenTTL+nonce.DefaultMargin, quietLogger())

	options := service.Options{
		Secret:          TestSecret,
		CPURL:           TestCPURL,
		ProjectPublicID: TestProjectPublicID,
		Clock:           clock,
	}
	for _, opt := range opts {
		opt(&options)
	}

	// create service
	svc := service.New(
		db.IdentityStore(),
		db.RoleStore(),
		db.SessionStore(),
		nonces,
		issuer,
		validator,
		options,
		service.PasswordModeTesting,
		quietLogger(),
	)

	minter := ssotest.NewMinter(TestSecret)
	minter.Now = clock.Now

	// setup cleanup
	t.Cleanup(func() {
		nonces.Stop()
		_ = db.Close()
	})

	return &TestEnv{
		DB:             db,
		Service:        svc,
		Nonces:         nonces,
		Minter:         minter,
		Clock:          clock,
		TokenIssuer:    issuer,
		TokenValidator: validator,
		SuperAdmin:     superAdmin,
	}
}

// SetupTestEnvWithRouter creates TestEnv and configures the API router
func SetupTestEnvWithRouter(
	t *testing.T,
	opts ...EnvOption,
) *TestEnv {
	t.Helper()
	env := SetupTestEnv(t, opts...)

	templates, err := resources.NewTemplates("", quietLogger())
	if err != nil {
		t.Fatalf("failed to load templates: %v", err)
	}
	env.Metrics = metrics.New()

	a := api.New(env.Service, templates, env.Metrics, api.Options{}, quietLogger())
	env.Router = a.Router()
	return env
}

// Token mints a valid control plane token for email
func (env *TestEnv) Token(
	t *testing.T,
	email string,
) string {
	t.Helper()
	token, err := env.Minter.Token(email)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return token
}

// CreateTestAdmin provisions an admin account by resolving its email
func (env *TestEnv) CreateTestAdmin(
	t *testing.T,
	email string,
) *service.Identity {
	t.Helper()
	identity, err := env.Service.Resolve(email)
	if err != nil {
		t.Fatalf("failed to create test admin: %v", err)
	}
	return identity
}

// LoginTestAdmin runs a full callback login for email and returns the session
func (env *TestEnv) LoginTestAdmin(
	t *testing.T,
	email string,
) *service.Login {
	t.Helper()
	login, err := env.Service.Login(t.Context(), env.Token(t, email))
	if err != nil {
		t.Fatalf("failed to log in test admin: %v", err)
	}
	return login
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
