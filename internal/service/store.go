package service

import (
	"context"

	"git.sr.ht/~jakintosh/ssobridge/pkg/tokens"
)

// IdentityStore handles persistence of admin identities. Lookups of unknown
// emails return sql.ErrNoRows.
type IdentityStore interface {
	GetIdentityByEmail(email string) (*Identity, error)
	InsertIdentity(identity *NewIdentity) (*Identity, error)
	CountIdentities() (int, error)
}

// RoleStore handles persistence of admin roles. Lookups of unknown codes
// return sql.ErrNoRows.
type RoleStore interface {
	GetRoleByCode(code string) (*Role, error)
	InsertRole(code string, name string) (*Role, error)
	CountRoles() (int, error)
}

// SessionStore handles persistence of refresh credentials.
type SessionStore interface {
	InsertSession(identityID int64, token *tokens.RefreshToken) error
	SessionExists(tokenID string) (bool, error)
	DeleteSession(tokenID string) (deleted bool, err error)
	DeleteSessionsForIdentity(identityID int64) (count int64, err error)
}

// NonceStore records consumed token nonces. CheckAndInsert must be atomic:
// it returns true only for the first caller presenting a nonce.
type NonceStore interface {
	CheckAndInsert(ctx context.Context, nonce string) (bool, error)
	PurgeAll(ctx context.Context) error
}

// ExpiredSessionSweeper is implemented by session stores that can drop
// sessions whose refresh credential has expired.
type ExpiredSessionSweeper interface {
	DeleteExpiredSessions(cutoff int64) (count int64, err error)
}
