package database

import (
	"fmt"

	"git.sr.ht/~jakintosh/ssobridge/internal/service"
	"git.sr.ht/~jakintosh/ssobridge/pkg/tokens"
)

func (s *SQLiteStore) SessionStore() service.SessionStore {
	return s
}

func (s *SQLiteStore) InsertSession(
	identityID int64,
	token *tokens.RefreshToken,
) error {
	_, err := s.db.Exec(`
		INSERT INTO session (owner, token_id, device, expiration)
		VALUES (?1, ?2, ?3, ?4);`,
		identityID,
		token.ID(),
		token.DeviceID(),
		token.Expiration().Unix(),
	)
	if err != nil {
		return fmt.Errorf("couldn't insert into session: %v", err)
	}
	return nil
}

func (s *SQLiteStore) SessionExists(
	tokenID string,
) (
	bool,
	error,
) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*)
		FROM session
		WHERE token_id=?1;`,
		tokenID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("couldn't query session: %v", err)
	}
	return count > 0, nil
}

func (s *SQLiteStore) DeleteSession(
	tokenID string,
) (
	bool,
	error,
) {
	result, err := s.db.Exec(`
		DELETE FROM session
		WHERE token_id=?1;`,
		tokenID,
	)
	if err != nil {
		return false, fmt.Errorf("couldn't delete from session: %v", err)
	}

	deleted := !resultsEmpty(result)
	return deleted, nil
}

func (s *SQLiteStore) DeleteSessionsForIdentity(
	identityID int64,
) (
	int64,
	error,
) {
	result, err := s.db.Exec(`
		DELETE FROM session
		WHERE owner=?1;`,
		identityID,
	)
	if err != nil {
		return 0, fmt.Errorf("couldn't delete from session: %v", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("couldn't count deleted sessions: %v", err)
	}
	return count, nil
}

// DeleteExpiredSessions removes sessions whose refresh credential expired
// before cutoff (unix seconds).
func (s *SQLiteStore) DeleteExpiredSessions(cutoff int64) (int64, error) {
	result, err := s.db.Exec(`
		DELETE FROM session
		WHERE expiration<?1;`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("couldn't delete expired sessions: %v", err)
	}
	return result.RowsAffected()
}
