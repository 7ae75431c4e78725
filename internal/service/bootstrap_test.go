package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~jakintosh/ssobridge/internal/database"
	"git.sr.ht/~jakintosh/ssobridge/internal/service"
	"git.sr.ht/~jakintosh/ssobridge/internal/testutil"
)

func TestDefaultRoles(t *testing.T) {
	t.Parallel()

	roles := service.DefaultRoles("")
	require.Len(t, roles, 3)
	assert.Equal(t, service.DefaultSuperAdminRole, roles[0].Code)

	roles = service.DefaultRoles("owner")
	assert.Equal(t, "owner", roles[0].Code)
}

func TestSeedRoles_EmptyTable(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// a fresh store with no roles at all
	db, err := database.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	svc := newService(env, stores{
		identities: db.IdentityStore(),
		roles:      db.RoleStore(),
		sessions:   db.SessionStore(),
		nonces:     env.Nonces,
	})

	inserted, err := svc.SeedRoles(service.DefaultRoles(""))
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	// seeding again is a no-op
	inserted, err = svc.SeedRoles(service.DefaultRoles(""))
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	role, err := db.GetRoleByCode("editor")
	require.NoError(t, err)
	assert.Equal(t, "Editor", role.Name)
}

func TestSeedRoles_ExistingRolesUntouched(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// the environment already holds the super admin role
	inserted, err := env.Service.SeedRoles(service.DefaultRoles(""))
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	count, err := env.DB.CountRoles()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBootstrapAdmin(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// an empty deployment gets its first admin
	identity, err := env.Service.BootstrapAdmin("Root@Example.com")
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "root@example.com", identity.Email)
	assert.True(t, identity.HasRole(service.DefaultSuperAdminRole))

	// once any admin exists nothing more is created
	again, err := env.Service.BootstrapAdmin("second@example.com")
	require.NoError(t, err)
	assert.Nil(t, again)

	count, _ := env.DB.CountIdentities()
	assert.Equal(t, 1, count)
}

func TestBootstrapAdmin_NoEmail(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	identity, err := env.Service.BootstrapAdmin("  ")
	assert.NoError(t, err)
	assert.Nil(t, identity)
}

func TestBootstrapAdmin_MissingRoleIsNotFatal(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t, testutil.WithSuperAdminRole("owner"))

	identity, err := env.Service.BootstrapAdmin("root@example.com")
	assert.NoError(t, err)
	assert.Nil(t, identity)
}
