package database_test

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~jakintosh/ssobridge/internal/database"
	"git.sr.ht/~jakintosh/ssobridge/internal/service"
)

func setupMockStore(t *testing.T) (*database.SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return database.NewSQLiteStoreWithDB(db), mock
}

func TestInsertIdentity_RoleLinkFailureRollsBack(t *testing.T) {
	t.Parallel()
	store, mock := setupMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO identity").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("INSERT INTO identity_role").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := store.InsertIdentity(&service.NewIdentity{
		Email:   "alice@example.com",
		RoleIDs: []int64{1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identity_role")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertIdentity_BeginFailure(t *testing.T) {
	t.Parallel()
	store, mock := setupMockStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("locked"))

	_, err := store.InsertIdentity(&service.NewIdentity{Email: "alice@example.com"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSessionsForIdentity_ExecFailure(t *testing.T) {
	t.Parallel()
	store, mock := setupMockStore(t)

	mock.ExpectExec("DELETE FROM session").
		WithArgs(int64(3)).
		WillReturnError(errors.New("connection reset"))

	_, err := store.DeleteSessionsForIdentity(3)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountIdentities_QueryFailure(t *testing.T) {
	t.Parallel()
	store, mock := setupMockStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnError(errors.New("no such table"))

	_, err := store.CountIdentities()
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetIdentityByEmail_RoleQueryFailure(t *testing.T) {
	t.Parallel()
	store, mock := setupMockStore(t)

	mock.ExpectQuery("SELECT id, email").
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "firstname", "lastname", "active", "created"}).
			AddRow(1, "alice@example.com", "Admin", "", true, 1700000000))
	mock.ExpectQuery("FROM identity_role").
		WillReturnError(errors.New("broken join"))

	_, err := store.GetIdentityByEmail("alice@example.com")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
