package service

import (
	"strconv"
	"time"
)

type Role struct {
	ID   int64
	Code string
	Name string
}

type Identity struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
	Active    bool
	Created   time.Time
	Roles     []Role
}

// Subject is the identity as it appears in session credentials.
func (i *Identity) Subject() string {
	return strconv.FormatInt(i.ID, 10)
}

func (i *Identity) HasRole(code string) bool {
	for _, r := range i.Roles {
		if r.Code == code {
			return true
		}
	}
	return false
}

// NewIdentity is an account about to be created.
type NewIdentity struct {
	Email     string
	FirstName string
	LastName  string
	Secret    []byte
	Active    bool
	RoleIDs   []int64
}
