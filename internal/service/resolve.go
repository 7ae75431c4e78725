package service

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// NormalizeEmail trims and lowercases an email for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Resolve returns the identity for email, provisioning a super admin account
// when none exists yet.
func (s *Service) Resolve(email string) (*Identity, error) {
	identity, _, err := s.resolve(email)
	return identity, err
}

func (s *Service) resolve(
	email string,
) (
	identity *Identity,
	provisioned bool,
	err error,
) {
	email = NormalizeEmail(email)

	identity, err = s.identityStore.GetIdentityByEmail(email)
	if err == nil {
		return identity, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("%w: failed to look up identity: %v", ErrProvisioningUnavailable, err)
	}

	identity, err = s.provision(email)
	if err != nil {
		// a concurrent first sign-in may have created the account first
		if errors.Is(err, ErrProvisioningFailed) {
			if existing, lookupErr := s.identityStore.GetIdentityByEmail(email); lookupErr == nil {
				s.log.WithField("email", email).Debug("SSO: admin user created concurrently")
				return existing, false, nil
			}
		}
		return nil, false, err
	}
	s.log.WithField("email", email).Info("SSO: auto-created admin user")
	return identity, true, nil
}

func (s *Service) provision(email string) (*Identity, error) {
	role, err := s.roleStore.GetRoleByCode(s.options.SuperAdminRole)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProvisioningUnavailable
		}
		return nil, fmt.Errorf("%w: failed to look up role: %v", ErrProvisioningUnavailable, err)
	}

	password, err := generatePassword()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvisioningFailed, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.passwordMode.Cost())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to hash password: %v", ErrProvisioningFailed, err)
	}

	identity, err := s.identityStore.InsertIdentity(&NewIdentity{
		Email:     email,
		FirstName: s.options.AdminFirstName,
		LastName:  s.options.AdminLastName,
		Secret:    hash,
		Active:    true,
		RoleIDs:   []int64{role.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to insert identity: %v", ErrProvisioningFailed, err)
	}
	return identity, nil
}

// generatePassword returns 32 random bytes hex encoded. Accounts created here
// only ever sign in through the control plane, so the value is discarded
// after hashing.
func generatePassword() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate password: %v", err)
	}
	return hex.EncodeToString(b), nil
}
