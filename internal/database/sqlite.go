// Package database provides SQLite persistence for roles, admin identities
// and refresh sessions.
package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and ensures the
// schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	// one connection keeps ":memory:" databases whole and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init database schema: couldn't enable foreign keys: %v", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init database: %v", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStoreWithDB wraps an open handle whose schema is managed elsewhere.
func NewSQLiteStoreWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	if err := initTable(db, "role", `
		CREATE TABLE IF NOT EXISTS role (
			id          INTEGER PRIMARY KEY,
			code        TEXT UNIQUE NOT NULL,
			name        TEXT NOT NULL
		);`,
	); err != nil {
		return err
	}

	if err := initTable(db, "identity", `
		CREATE TABLE IF NOT EXISTS identity (
			id          INTEGER PRIMARY KEY,
			email       TEXT UNIQUE NOT NULL,
			firstname   TEXT NOT NULL,
			lastname    TEXT NOT NULL,
			secret      BLOB,
			active      INTEGER NOT NULL,
			created     INTEGER NOT NULL
		);`,
	); err != nil {
		return err
	}

	if err := initTable(db, "identity_role", `
		CREATE TABLE IF NOT EXISTS identity_role (
			identity    INTEGER NOT NULL,
			role        INTEGER NOT NULL,
			PRIMARY KEY (identity, role),
			FOREIGN KEY (identity) REFERENCES identity (id) ON DELETE CASCADE,
			FOREIGN KEY (role) REFERENCES role (id)
		);`,
	); err != nil {
		return err
	}

	if err := initTable(db, "session", `
		CREATE TABLE IF NOT EXISTS session (
			id          INTEGER PRIMARY KEY,
			owner       INTEGER NOT NULL,
			token_id    TEXT UNIQUE NOT NULL,
			device      TEXT NOT NULL,
			expiration  INTEGER NOT NULL,
			FOREIGN KEY (owner) REFERENCES identity (id) ON DELETE CASCADE
		);`,
	); err != nil {
		return err
	}

	return nil
}

func initTable(
	db *sql.DB,
	name string,
	sql string,
) error {
	if _, err := db.Exec(sql); err != nil {
		return fmt.Errorf("failed to init '%s' table schema: %v", name, err)
	}
	return nil
}

func resultsEmpty(result sql.Result) bool {
	count, err := result.RowsAffected()
	if err != nil {
		return false
	}
	return count == 0
}
