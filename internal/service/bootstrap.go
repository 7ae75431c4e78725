package service

import (
	"errors"
	"fmt"
)

// RoleSeed is a role created when the role table is empty.
type RoleSeed struct {
	Code string
	Name string
}

// DefaultRoles returns the role set seeded on first start, with the super
// admin role under the configured code.
func DefaultRoles(superAdminCode string) []RoleSeed {
	if superAdminCode == "" {
		superAdminCode = DefaultSuperAdminRole
	}
	return []RoleSeed{
		{Code: superAdminCode, Name: "Super Admin"},
		{Code: "editor", Name: "Editor"},
		{Code: "author", Name: "Author"},
	}
}

// SeedRoles inserts seeds when no roles exist. It returns how many were
// inserted.
func (s *Service) SeedRoles(seeds []RoleSeed) (int, error) {
	count, err := s.roleStore.CountRoles()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count roles: %v", ErrInternal, err)
	}
	if count > 0 {
		return 0, nil
	}

	for _, seed := range seeds {
		if _, err := s.roleStore.InsertRole(seed.Code, seed.Name); err != nil {
			return 0, fmt.Errorf("%w: failed to insert role '%s': %v", ErrInternal, seed.Code, err)
		}
	}
	s.log.WithField("roles", len(seeds)).Info("seeded admin roles")
	return len(seeds), nil
}

// BootstrapAdmin creates the first admin account from email when no account
// exists yet. A missing super admin role is logged, not returned, so a fresh
// deployment still starts.
func (s *Service) BootstrapAdmin(email string) (*Identity, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}

	count, err := s.identityStore.CountIdentities()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to count identities: %v", ErrInternal, err)
	}
	if count > 0 {
		return nil, nil
	}

	identity, err := s.provision(email)
	if errors.Is(err, ErrProvisioningUnavailable) {
		s.log.WithError(err).Warn("bootstrap: super admin role not found, skipping admin creation")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.log.WithField("email", email).Info("bootstrap: created admin user")
	return identity, nil
}
