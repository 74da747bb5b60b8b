package model

import "time"

// TokenStatus is the lifecycle state of an email verification token.
// Valid transitions are ACTIVE→USED and ACTIVE→EXPIRED; both targets
// are terminal.
type TokenStatus string

const (
	TokenActive  TokenStatus = "ACTIVE"
	TokenUsed    TokenStatus = "USED"
	TokenExpired TokenStatus = "EXPIRED"
)

// VerificationToken models a row in `verification_tokens`. Token holds
// the signed JWT that was mailed to the user.
type VerificationToken struct {
	ID        string
	Token     string
	UserID    string
	ExpiresAt time.Time
	Status    TokenStatus
	CreatedAt time.Time
}

// ExpiredAt reports whether the token's expiry is before now.
func (t *VerificationToken) ExpiredAt(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
