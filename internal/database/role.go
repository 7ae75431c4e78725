package database

import (
	"fmt"

	"git.sr.ht/~jakintosh/ssobridge/internal/service"
)

func (s *SQLiteStore) RoleStore() service.RoleStore {
	return s
}

func (s *SQLiteStore) GetRoleByCode(
	code string,
) (
	*service.Role,
	error,
) {
	row := s.db.QueryRow(`
		SELECT id, code, name
		FROM role
		WHERE code=?1;`,
		code,
	)

	role := &service.Role{}
	if err := row.Scan(&role.ID, &role.Code, &role.Name); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *SQLiteStore) InsertRole(
	code string,
	name string,
) (
	*service.Role,
	error,
) {
	result, err := s.db.Exec(`
		INSERT INTO role (code, name)
		VALUES (?1, ?2);`,
		code,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't insert into role: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("couldn't read role id: %v", err)
	}
	return &service.Role{ID: id, Code: code, Name: name}, nil
}

func (s *SQLiteStore) CountRoles() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM role;`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("couldn't count roles: %v", err)
	}
	return count, nil
}

func (s *SQLiteStore) rolesFor(identityID int64) ([]service.Role, error) {
	rows, err := s.db.Query(`
		SELECT r.id, r.code, r.name
		FROM identity_role ir
		JOIN role r ON ir.role = r.id
		WHERE ir.identity=?1
		ORDER BY r.id;`,
		identityID,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't query roles: %v", err)
	}
	defer rows.Close()

	var roles []service.Role
	for rows.Next() {
		var role service.Role
		if err := rows.Scan(&role.ID, &role.Code, &role.Name); err != nil {
			return nil, fmt.Errorf("couldn't scan role: %v", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("couldn't read roles: %v", err)
	}
	return roles, nil
}
