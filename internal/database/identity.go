package database

import (
	"fmt"
	"time"

	"git.sr.ht/~jakintosh/ssobridge/internal/service"
)

func (s *SQLiteStore) IdentityStore() service.IdentityStore {
	return s
}

func (s *SQLiteStore) GetIdentityByEmail(
	email string,
) (
	*service.Identity,
	error,
) {
	row := s.db.QueryRow(`
		SELECT id, email, firstname, lastname, active, created
		FROM identity
		WHERE email=?1;`,
		email,
	)

	identity := &service.Identity{}
	var created int64
	err := row.Scan(
		&identity.ID,
		&identity.Email,
		&identity.FirstName,
		&identity.LastName,
		&identity.Active,
		&created,
	)
	if err != nil {
		return nil, err
	}
	identity.Created = time.Unix(created, 0)

	roles, err := s.rolesFor(identity.ID)
	if err != nil {
		return nil, err
	}
	identity.Roles = roles

	return identity, nil
}

// InsertIdentity creates the account and its role links in one transaction.
func (s *SQLiteStore) InsertIdentity(
	identity *service.NewIdentity,
) (
	*service.Identity,
	error,
) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("couldn't begin transaction: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	created := time.Now()
	result, err := tx.Exec(`
		INSERT INTO identity (email, firstname, lastname, secret, active, created)
		VALUES (?1, ?2, ?3, ?4, ?5, ?6);`,
		identity.Email,
		identity.FirstName,
		identity.LastName,
		identity.Secret,
		identity.Active,
		created.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't insert into identity: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("couldn't read identity id: %v", err)
	}

	for _, roleID := range identity.RoleIDs {
		_, err := tx.Exec(`
			INSERT INTO identity_role (identity, role)
			VALUES (?1, ?2);`,
			id,
			roleID,
		)
		if err != nil {
			return nil, fmt.Errorf("couldn't insert into identity_role: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("couldn't commit identity: %v", err)
	}

	return s.GetIdentityByEmail(identity.Email)
}

func (s *SQLiteStore) CountIdentities() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM identity;`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("couldn't count identities: %v", err)
	}
	return count, nil
}
