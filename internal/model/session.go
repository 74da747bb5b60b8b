package model

import (
	"crypto/subtle"
	"time"
)

// Session is the authenticated state of one user on one device. A row
// is unique per (UserID, DeviceHash) and is reused across logins from
// the same device.
//
// Fields:
//
//	ID           – primary key (UUID string), embedded in tokens as sessionId.
//	UserID       – owner of the session.
//	DeviceHash   – SHA-256 fingerprint of ip + user agent.
//	RefreshToken – current refresh token; nil or empty means logged out.
//	UserAgent    – user agent seen at the last login.
//	IPAddress    – client IP seen at the last login.
//	TokenVersion – monotonic counter; access tokens carry the value they were minted with.
type Session struct {
	ID           string
	UserID       string
	DeviceHash   string
	RefreshToken *string
	UserAgent    string
	IPAddress    string
	TokenVersion int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether the session still holds a refresh token.
func (s Session) Active() bool {
	return s.RefreshToken != nil && *s.RefreshToken != ""
}

// HasRefreshToken reports whether raw is the session's current refresh
// token. The comparison runs in constant time.
func (s Session) HasRefreshToken(raw string) bool {
	return s.Active() && subtle.ConstantTimeCompare([]byte(*s.RefreshToken), []byte(raw)) == 1
}
