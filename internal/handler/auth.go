package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/apperr"
	"github.com/iliyamo/storefront-api/internal/logging"
	"github.com/iliyamo/storefront-api/internal/middleware"
	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/response"
	"github.com/iliyamo/storefront-api/internal/service"
	"github.com/iliyamo/storefront-api/internal/utils"
)

// AuthService is the account and session workflow behind the auth routes.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
	VerifyEmail(ctx context.Context, token, ip, userAgent string) (*service.VerifyResult, error)
	ResendVerification(ctx context.Context, email string) (*model.VerificationToken, error)
	Login(ctx context.Context, in service.LoginInput, device utils.DeviceInfo) (*service.LoginResult, error)
	Logout(ctx context.Context, claims *utils.AuthClaims) error
	Refresh(ctx context.Context, claims *utils.AuthClaims, refreshToken string) (string, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	svc          AuthService
	log          logging.Logger
	secureCookie bool
	refreshTTL   time.Duration
}

func NewAuthHandler(svc AuthService, log logging.Logger, secureCookie bool, refreshTTL time.Duration) *AuthHandler {
	if log == nil {
		log = logging.Nop()
	}
	if refreshTTL <= 0 {
		refreshTTL = utils.DefaultRefreshTTL
	}
	return &AuthHandler{svc: svc, log: log, secureCookie: secureCookie, refreshTTL: refreshTTL}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resendReq struct {
	Email string `json:"email"`
}

type accountResp struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type sessionResp struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	AccessToken string `json:"accessToken"`
}

type meResp struct {
	ID       string         `json:"id"`
	Username string         `json:"username"`
	Email    string         `json:"email"`
	Role     model.RoleName `json:"role"`
}

type accessResp struct {
	AccessToken string `json:"accessToken"`
}

// failed logs a workflow failure with the client fingerprint and returns
// err unchanged for the error handler.
func (h *AuthHandler) failed(c echo.Context, event, email string, err error) error {
	if email == "" {
		email = "unknown"
	}
	info := utils.ClientInfo(c)
	h.log.Error(c.Request().Context(), event,
		"email", email, "message", err.Error(), "ip", info.IP, "userAgent", info.UserAgent)
	return err
}

func (h *AuthHandler) succeeded(c echo.Context, event, email string) {
	info := utils.ClientInfo(c)
	h.log.Info(c.Request().Context(), event, "email", email, "ip", info.IP, "userAgent", info.UserAgent)
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.RefreshCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.refreshTTL / time.Second),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.RefreshCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

// Register creates an unverified account and mails the activation link.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return h.failed(c, "registration_failed", "", err)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	user, err := h.svc.Register(ctx, service.RegisterInput{
		Username: req.Username, Email: req.Email, Password: req.Password,
	})
	if err != nil {
		return h.failed(c, "registration_failed", req.Email, err)
	}

	h.succeeded(c, "registration_success", user.Email)
	return response.Success(c, http.StatusCreated,
		"Registration success, Please check your email for activation.",
		accountResp{Username: user.Username, Email: user.Email})
}

// VerifyEmail activates the account behind :token and starts a session.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	info := utils.ClientInfo(c)

	ctx, cancel := requestCtx(c)
	defer cancel()

	res, err := h.svc.VerifyEmail(ctx, c.Param("token"), info.IP, info.UserAgent)
	if err != nil {
		return h.failed(c, "email_verification_failed", "", err)
	}

	h.setRefreshCookie(c, res.RefreshToken)
	h.succeeded(c, "email_verification_success", res.User.Email)
	return response.Success(c, http.StatusOK, "Email verified success.", sessionResp{
		Username: res.User.Username, Email: res.User.Email, AccessToken: res.AccessToken,
	})
}

// ResendVerification mails a fresh activation link.
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req resendReq
	if err := bind(c, &req); err != nil {
		return h.failed(c, "send_email_verification_failed", "", err)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	if _, err := h.svc.ResendVerification(ctx, req.Email); err != nil {
		return h.failed(c, "send_email_verification_failed", req.Email, err)
	}

	h.succeeded(c, "send_email_verification_success", req.Email)
	return response.Success(c, http.StatusOK,
		"Resend email verification success. Please check your email.", nil)
}

// Login checks credentials, sets the refresh cookie and returns the
// access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return h.failed(c, "login_failed", "", err)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	res, err := h.svc.Login(ctx, service.LoginInput{Email: req.Email, Password: req.Password}, utils.ClientInfo(c))
	if err != nil {
		return h.failed(c, "login_failed", req.Email, err)
	}

	h.setRefreshCookie(c, res.RefreshToken)
	h.succeeded(c, "login_success", res.User.Email)
	return response.Success(c, http.StatusOK, "Login success", sessionResp{
		Username: res.User.Username, Email: res.User.Email, AccessToken: res.AccessToken,
	})
}

// Logout invalidates the caller's session and clears the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.svc.Logout(ctx, middleware.ClaimsFrom(c)); err != nil {
		return err
	}
	h.clearRefreshCookie(c)
	return response.Success(c, http.StatusOK, "Logout success", nil)
}

// Me echoes the identity carried by the access token.
func (h *AuthHandler) Me(c echo.Context) error {
	cl := middleware.ClaimsFrom(c)
	if cl == nil {
		return apperr.ErrUnauthorized
	}
	return response.Success(c, http.StatusOK, "Success get user from access token.", meResp{
		ID: cl.ID, Username: cl.Username, Email: cl.Email, Role: cl.Role,
	})
}

// RefreshToken mints a new access token for the cookie's session.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	access, err := h.svc.Refresh(ctx, middleware.ClaimsFrom(c), middleware.RefreshTokenFrom(c))
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, "Access token refreshed success.", accessResp{AccessToken: access})
}
