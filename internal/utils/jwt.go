package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"

	"github.com/iliyamo/storefront-api/internal/model"
)

// Default lifetimes for the three token kinds.
const (
	DefaultAccessTTL     = 15 * time.Minute
	DefaultRefreshTTL    = 7 * 24 * time.Hour
	DefaultEmailTokenTTL = time.Hour
)

// Verification failures. Callers that care about expiry (email
// activation) branch on ErrExpiredToken; the guards treat both alike.
var (
	ErrExpiredToken   = errors.New("token expired")
	ErrMalformedToken = errors.New("token malformed")
	ErrEmptySecret    = errors.New("empty signing secret")
)

// AuthClaims is the payload shared by access and refresh tokens. It
// binds the bearer to one session on one device at one token version.
type AuthClaims struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Username     string         `json:"username"`
	Role         model.RoleName `json:"role"`
	TokenVersion int64          `json:"tokenVersion"`
	SessionID    string         `json:"sessionId"`
	DeviceHash   string         `json:"deviceHash"`
	jwt.RegisteredClaims
}

// emailClaims is the payload of an email verification token.
type emailClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 tokens. Each kind has its own
// secret so a refresh token can never be replayed as an access token.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	emailSecret   []byte
	now           func() time.Time
}

// NewTokenCodec builds a codec from the three signing secrets.
func NewTokenCodec(accessSecret, refreshSecret, emailSecret string) *TokenCodec {
	return &TokenCodec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		emailSecret:   []byte(emailSecret),
		now:           time.Now,
	}
}

// WithClock returns a copy of the codec that stamps iat/exp from now.
// Verification always checks against the wall clock.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	cp := *c
	cp.now = now
	return &cp
}

// SignAccessToken returns a signed access token valid for ttl.
func (c *TokenCodec) SignAccessToken(claims AuthClaims, ttl time.Duration) (string, error) {
	return c.signAuth(c.accessSecret, claims, ttl)
}

// SignRefreshToken returns a signed refresh token valid for ttl.
func (c *TokenCodec) SignRefreshToken(claims AuthClaims, ttl time.Duration) (string, error) {
	return c.signAuth(c.refreshSecret, claims, ttl)
}

// VerifyAccessToken parses and validates an access token.
func (c *TokenCodec) VerifyAccessToken(raw string) (*AuthClaims, error) {
	return c.verifyAuth(c.accessSecret, raw)
}

// VerifyRefreshToken parses and validates a refresh token.
func (c *TokenCodec) VerifyRefreshToken(raw string) (*AuthClaims, error) {
	return c.verifyAuth(c.refreshSecret, raw)
}

// SignEmailVerification returns a token proving control of email,
// valid for ttl (DefaultEmailTokenTTL when ttl is zero).
func (c *TokenCodec) SignEmailVerification(email string, ttl time.Duration) (string, error) {
	if len(c.emailSecret) == 0 {
		return "", ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultEmailTokenTTL
	}
	claims := emailClaims{Email: email, RegisteredClaims: c.registered(ttl)}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.emailSecret)
}

// VerifyEmailVerification returns the email embedded in token.
func (c *TokenCodec) VerifyEmailVerification(raw string) (string, error) {
	claims := &emailClaims{}
	if err := c.parse(c.emailSecret, raw, claims); err != nil {
		return "", err
	}
	if claims.Email == "" {
		return "", ErrMalformedToken
	}
	return claims.Email, nil
}

func (c *TokenCodec) signAuth(secret []byte, claims AuthClaims, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}
	claims.RegisteredClaims = c.registered(ttl)
	claims.Subject = claims.ID
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (c *TokenCodec) verifyAuth(secret []byte, raw string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	if err := c.parse(secret, raw, claims); err != nil {
		return nil, err
	}
	if claims.ID == "" || claims.SessionID == "" {
		return nil, ErrMalformedToken
	}
	return claims, nil
}

// registered builds exp/iat and a random jti; two tokens minted in the
// same second for the same session must still differ.
func (c *TokenCodec) registered(ttl time.Duration) jwt.RegisteredClaims {
	now := c.now().UTC()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (c *TokenCodec) parse(secret []byte, raw string, claims jwt.Claims) error {
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return ErrMalformedToken
	}
	if !tok.Valid {
		return ErrMalformedToken
	}
	return nil
}
