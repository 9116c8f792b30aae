package models

import (
	"fmt"
	"time"
)

// Role is the closed set of account roles known to the route guard.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

func (r Role) String() string {
	return string(r)
}

// User is the credential record as stored. The recovery fields are paired:
// either both are set (a code is pending) or both are NULL.
type User struct {
	ID                    int64
	Name                  string
	Email                 string
	PassHash              []byte
	Role                  Role
	RecoveryCodeHash      *string
	RecoveryCodeExpiresAt *time.Time
}

// HasPendingRecoveryCode reports whether a recovery code is awaiting
// consumption (expired or not).
func (u *User) HasPendingRecoveryCode() bool {
	return u.RecoveryCodeHash != nil && u.RecoveryCodeExpiresAt != nil
}

// RecoveryEmail is the message handed to the mail queue. The code travels
// in plaintext here because the mailer must deliver it to the user; only
// its bcrypt hash is ever persisted.
type RecoveryEmail struct {
	To        string    `json:"to"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}
