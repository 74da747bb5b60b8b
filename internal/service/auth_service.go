package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/storefront-api/internal/apperr"
	"github.com/iliyamo/storefront-api/internal/logging"
	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/repository"
	"github.com/iliyamo/storefront-api/internal/utils"
)

// UserStore is the user read/write model the service depends on.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	MarkVerified(ctx context.Context, id string) error
}

// RoleStore resolves the default role for new accounts.
type RoleStore interface {
	FindByName(ctx context.Context, name string) (*model.Role, error)
	Create(ctx context.Context, r *model.Role) error
}

// SessionStore owns the per-device session rows. Every token_version
// change happens inside the store as an atomic increment.
type SessionStore interface {
	Upsert(ctx context.Context, s *model.Session) (*model.Session, error)
	ListByUser(ctx context.Context, userID string) ([]model.Session, error)
	SetRefreshToken(ctx context.Context, id, token string) error
	Invalidate(ctx context.Context, id, userID string) error
	IncrementTokenVersion(ctx context.Context, id string) (*model.Session, error)
}

// VerificationTokenStore persists the emailed activation tokens.
type VerificationTokenStore interface {
	Create(ctx context.Context, t *model.VerificationToken) error
	FindByToken(ctx context.Context, token string) (*model.VerificationToken, error)
	MarkUsed(ctx context.Context, id string) (bool, error)
	MarkExpired(ctx context.Context, id string) error
}

// Mailer dispatches the verification email.
type Mailer interface {
	SendVerification(ctx context.Context, email, username, token string) error
}

// AuthConfig carries the lifetimes and hashing cost.
type AuthConfig struct {
	BcryptCost    int
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	EmailTokenTTL time.Duration
}

// Deps groups the collaborators of AuthService.
type Deps struct {
	Users    UserStore
	Roles    RoleStore
	Sessions SessionStore
	Tokens   VerificationTokenStore
	Mailer   Mailer
	Codec    *utils.TokenCodec
	Config   AuthConfig
	Log      logging.Logger
	Now      func() time.Time
}

// AuthService implements registration, email verification, login,
// logout and access token refresh.
type AuthService struct {
	users    UserStore
	roles    RoleStore
	sessions SessionStore
	tokens   VerificationTokenStore
	mailer   Mailer
	codec    *utils.TokenCodec
	cfg      AuthConfig
	log      logging.Logger
	now      func() time.Time

	dummyHash func() string
}

func NewAuthService(d Deps) *AuthService {
	cfg := d.Config
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = utils.DefaultBcryptCost
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = utils.DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = utils.DefaultRefreshTTL
	}
	if cfg.EmailTokenTTL == 0 {
		cfg.EmailTokenTTL = utils.DefaultEmailTokenTTL
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	log := d.Log
	if log == nil {
		log = logging.Nop()
	}
	s := &AuthService{
		users:    d.Users,
		roles:    d.Roles,
		sessions: d.Sessions,
		tokens:   d.Tokens,
		mailer:   d.Mailer,
		codec:    d.Codec,
		cfg:      cfg,
		log:      log,
		now:      now,
	}
	// Compared against when the email is unknown so that both login
	// failures cost one bcrypt comparison.
	s.dummyHash = sync.OnceValue(func() string {
		h, _ := utils.HashPassword("not-a-real-password", cfg.BcryptCost)
		return h
	})
	return s
}

// VerifyResult is returned by VerifyEmail and Login.
type VerifyResult struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
}

// LoginResult is an alias kept for readability at call sites.
type LoginResult = VerifyResult

// Register validates the input, rejects taken usernames and emails in a
// single error, stores the user under the customer role and sends one
// verification email.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := in.Validate(); err != nil {
		return nil, ValidationFailed(err)
	}

	conflicts, err := s.conflicts(ctx, in.Username, in.Email)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	if len(conflicts) > 0 {
		return nil, apperr.ErrConflict.WithMessage("Validation failed.").WithDetails(conflicts...)
	}

	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	role, err := s.customerRole(ctx)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		RoleID:       role.ID,
		Role:         role,
		AuthProvider: model.AuthProviderLocal,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// lost a race with a concurrent registration
			if details, cerr := s.conflicts(ctx, in.Username, in.Email); cerr == nil && len(details) > 0 {
				return nil, apperr.ErrConflict.WithMessage("Validation failed.").WithDetails(details...)
			}
			return nil, apperr.ErrConflict
		}
		return nil, apperr.Unexpected(err)
	}

	if _, err := s.issueVerification(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) conflicts(ctx context.Context, username, email string) ([]apperr.FieldError, error) {
	var out []apperr.FieldError
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		out = append(out, apperr.FieldError{Field: "username", Message: "Username already taken."})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		out = append(out, apperr.FieldError{Field: "email", Message: "Email already taken."})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	return out, nil
}

// customerRole returns the default role, creating it on first use.
func (s *AuthService) customerRole(ctx context.Context) (*model.Role, error) {
	role, err := s.roles.FindByName(ctx, string(model.RoleCustomer))
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unexpected(err)
	}
	role = &model.Role{ID: uuid.NewString(), Name: string(model.RoleCustomer), CreatedBy: "system"}
	if err := s.roles.Create(ctx, role); err != nil {
		if !errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Unexpected(err)
		}
		if role, err = s.roles.FindByName(ctx, string(model.RoleCustomer)); err != nil {
			return nil, apperr.Unexpected(err)
		}
		return role, nil
	}
	s.log.Info(ctx, "default_role_created", "role", role.Name, "id", role.ID)
	return role, nil
}

// issueVerification signs, persists and then mails a new token.
func (s *AuthService) issueVerification(ctx context.Context, user *model.User) (*model.VerificationToken, error) {
	raw, err := s.codec.SignEmailVerification(user.Email, s.cfg.EmailTokenTTL)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	tok := &model.VerificationToken{
		ID:        uuid.NewString(),
		Token:     raw,
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.cfg.EmailTokenTTL),
		Status:    model.TokenActive,
	}
	if err := s.tokens.Create(ctx, tok); err != nil {
		return nil, apperr.Unexpected(err)
	}
	if err := s.mailer.SendVerification(ctx, user.Email, user.Username, raw); err != nil {
		return nil, apperr.Unexpected(fmt.Errorf("send verification email: %w", err))
	}
	return tok, nil
}

// VerifyEmail consumes an emailed token, activates the account and logs
// the requesting device in.
func (s *AuthService) VerifyEmail(ctx context.Context, token, ip, userAgent string) (*VerifyResult, error) {
	if token == "" {
		return nil, apperr.ErrMissingToken
	}

	stored, err := s.tokens.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrInvalidToken
		}
		return nil, apperr.Unexpected(err)
	}
	switch stored.Status {
	case model.TokenUsed:
		return nil, apperr.ErrTokenAlreadyUsed
	case model.TokenExpired:
		return nil, apperr.TokenExpired(apperr.ErrTokenExpired.Message)
	}

	// The stored expiry is checked before the signature so that the
	// EXPIRED transition is recorded even for tokens that still verify.
	if stored.ExpiredAt(s.now()) {
		if err := s.tokens.MarkExpired(ctx, stored.ID); err != nil {
			return nil, apperr.Unexpected(err)
		}
		return nil, apperr.TokenExpired(apperr.ErrTokenExpired.Message)
	}

	email, err := s.codec.VerifyEmailVerification(token)
	switch {
	case errors.Is(err, utils.ErrExpiredToken):
		if err := s.tokens.MarkExpired(ctx, stored.ID); err != nil {
			return nil, apperr.Unexpected(err)
		}
		return nil, apperr.TokenExpired("Token has expired (JWT Expired)")
	case err != nil:
		return nil, apperr.ErrInvalidToken.WithMessage("Invalid Token (JWT Broken)")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.Unexpected(err)
	}

	// Claim the token before touching the session so that a concurrent
	// verify which loses the claim cannot overwrite the winner's refresh token.
	ok, err := s.tokens.MarkUsed(ctx, stored.ID)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	if !ok {
		return nil, apperr.ErrTokenAlreadyUsed
	}

	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return nil, apperr.Unexpected(err)
	}
	user.IsVerified = true

	device := utils.DeviceInfo{IP: ip, UserAgent: userAgent, DeviceHash: utils.DeviceHash(ip, userAgent)}
	return s.startSession(ctx, user, device)
}

// startSession upserts the device session with a cleared refresh token,
// mints a token pair for its current version and stores the refresh token.
func (s *AuthService) startSession(ctx context.Context, user *model.User, device utils.DeviceInfo) (*VerifyResult, error) {
	sess, err := s.sessions.Upsert(ctx, &model.Session{
		UserID:     user.ID,
		DeviceHash: device.DeviceHash,
		UserAgent:  device.UserAgent,
		IPAddress:  device.IP,
	})
	if err != nil {
		return nil, apperr.Unexpected(err)
	}

	claims := utils.AuthClaims{
		ID:           user.ID,
		Email:        user.Email,
		Username:     user.Username,
		Role:         user.RoleName(),
		TokenVersion: sess.TokenVersion,
		SessionID:    sess.ID,
		DeviceHash:   device.DeviceHash,
	}
	access, err := s.codec.SignAccessToken(claims, s.cfg.AccessTTL)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	refresh, err := s.codec.SignRefreshToken(claims, s.cfg.RefreshTTL)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	if err := s.sessions.SetRefreshToken(ctx, sess.ID, refresh); err != nil {
		return nil, apperr.Unexpected(err)
	}
	return &VerifyResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// ResendVerification issues another token for an unverified account.
// Earlier tokens stay ACTIVE.
func (s *AuthService) ResendVerification(ctx context.Context, email string) (*model.VerificationToken, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperr.Validation("Validation failed.",
			apperr.FieldError{Field: "email", Message: "Email is required."})
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.Unexpected(err)
	}
	if user.IsVerified {
		return nil, apperr.ErrAlreadyVerified
	}
	return s.issueVerification(ctx, user)
}

// Login checks the credentials and starts a session for the device.
func (s *AuthService) Login(ctx context.Context, in LoginInput, device utils.DeviceInfo) (*LoginResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := in.Validate(); err != nil {
		return nil, ValidationFailed(err)
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unexpected(err)
	}
	if user == nil {
		utils.VerifyPassword(s.dummyHash(), in.Password)
		return nil, apperr.ErrInvalidCredentials
	}
	if !utils.VerifyPassword(user.PasswordHash, in.Password) {
		return nil, apperr.ErrInvalidCredentials
	}
	if !user.IsVerified {
		return nil, apperr.EmailNotVerified()
	}
	return s.startSession(ctx, user, device)
}

// Logout clears the session's refresh token and bumps its version in
// one statement.
func (s *AuthService) Logout(ctx context.Context, claims *utils.AuthClaims) error {
	if claims == nil || claims.ID == "" || claims.SessionID == "" {
		return apperr.ErrInvalidSession.WithMessage("Invalid user session.")
	}
	if _, err := s.users.FindByID(ctx, claims.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ErrUserNotFound
		}
		return apperr.Unexpected(err)
	}
	if err := s.sessions.Invalidate(ctx, claims.SessionID, claims.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ErrSessionNotFound
		}
		return apperr.Unexpected(err)
	}
	return nil
}

// Refresh mints a new access token for the session holding refreshToken.
// The version bump invalidates every access token issued before it.
func (s *AuthService) Refresh(ctx context.Context, claims *utils.AuthClaims, refreshToken string) (string, error) {
	if claims == nil || claims.ID == "" || claims.SessionID == "" || refreshToken == "" {
		return "", apperr.ErrUnauthorized.WithMessage("Unauthorized access: missing user or token")
	}
	user, err := s.users.FindByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperr.ErrUserNotFound
		}
		return "", apperr.Unexpected(err)
	}
	sessions, err := s.sessions.ListByUser(ctx, user.ID)
	if err != nil {
		return "", apperr.Unexpected(err)
	}

	var current *model.Session
	for i := range sessions {
		sess := &sessions[i]
		if sess.ID == claims.SessionID && sess.HasRefreshToken(refreshToken) {
			current = sess
			break
		}
	}
	if current == nil {
		return "", apperr.ErrRefreshMismatch
	}

	updated, err := s.sessions.IncrementTokenVersion(ctx, current.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperr.ErrRefreshMismatch
		}
		return "", apperr.Unexpected(err)
	}

	access, err := s.codec.SignAccessToken(utils.AuthClaims{
		ID:           user.ID,
		Email:        user.Email,
		Username:     user.Username,
		Role:         user.RoleName(),
		TokenVersion: updated.TokenVersion,
		SessionID:    updated.ID,
		DeviceHash:   current.DeviceHash,
	}, s.cfg.AccessTTL)
	if err != nil {
		return "", apperr.Unexpected(err)
	}
	return access, nil
}
