package model

import "time"

// User represents an application user record as stored in the
// `users` table. The json tags are omitted because these structs are
// used by the repository and service layers; handlers define their own
// response shapes so that the password hash never leaves the server.
//
// Fields:
//
//	ID           – primary key (UUID string).
//	Username     – unique public handle.
//	Email        – unique, lower-cased email address.
//	PasswordHash – bcrypt hash of the password.
//	RoleID       – foreign key into the roles table.
//	Role         – the joined role, populated by lookups that need it.
//	IsVerified   – whether the email address has been confirmed.
//	AuthProvider – how the account authenticates (always "local" here).
//	ImageURL     – optional avatar URL.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	RoleID       string
	Role         *Role
	IsVerified   bool
	AuthProvider string
	ImageURL     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuthProviderLocal marks accounts that log in with email and password.
const AuthProviderLocal = "local"

// RoleName returns the user's role as a claim value, or an empty name
// when the role was not joined.
func (u *User) RoleName() RoleName {
	if u == nil || u.Role == nil {
		return ""
	}
	return RoleName(u.Role.Name)
}
