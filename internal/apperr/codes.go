package apperr

import "net/http"

// Sentinels for every failure the auth core can report. Compare with
// errors.Is; derive client-facing variants with WithMessage/WithDetails.
var (
	ErrValidation = New(KindValidation, "validation_failed", "Validation failed.")
	ErrUnexpected = New(KindUnexpected, "unexpected", "Internal server error.")

	// Conflicts keep the 400 status the API has always returned.
	ErrConflict = New(KindConflict, "conflict", "Resource already exists.")

	ErrNotFound        = New(KindNotFound, "not_found", "Resource not found.")
	ErrUserNotFound    = New(KindNotFound, "user_not_found", "User not found.")
	ErrMissingToken    = New(KindNotFound, "missing_token", "Invalid token url.")
	ErrAlreadyVerified = New(KindValidation, "already_verified", "Account has been verified.")

	// email verification
	ErrInvalidToken     = New(KindValidation, "invalid_token", "Invalid Link. Please check your URL.")
	ErrTokenAlreadyUsed = New(KindValidation, "token_already_used", "Invalid Link. Token already used.")
	ErrTokenExpired     = New(KindValidation, "token_expired", "Invalid Link, Token has expired")

	// credentials
	ErrInvalidCredentials = New(KindUnauthorized, "invalid_credentials", "Email / Password incorrect.")
	ErrEmailNotVerified   = New(KindValidation, "email_not_verified",
		"Your email has not been activated. Please check your email or you can request a new activation link.")

	// access guard
	ErrMissingAuth           = New(KindUnauthorized, "missing_auth", "Authorization header missing or malformed.")
	ErrInvalidOrExpiredToken = New(KindUnauthorized, "invalid_or_expired_token", "Invalid or expired access token.")
	ErrSessionNotFound       = New(KindUnauthorized, "session_not_found", "Session not found or expired. Please login again.")
	ErrSessionInvalidated    = New(KindUnauthorized, "session_invalidated", "Session has been invalidated. Please login again.")
	ErrTokenSuperseded       = New(KindUnauthorized, "token_superseded", "Access token no longer valid. Please login again.")

	// refresh guard / refresh
	ErrMissingRefreshToken = New(KindUnauthorized, "missing_refresh_token", "Refresh token not found.")
	ErrInvalidRefreshToken = New(KindUnauthorized, "invalid_refresh_token", "Invalid or expired refresh token.")
	ErrInvalidSession      = New(KindUnauthorized, "invalid_session", "Invalid session. Please login again.")
	ErrRefreshMismatch     = New(KindUnauthorized, "refresh_mismatch", "Refresh token missmatch")

	// authorization
	ErrUnauthorized    = New(KindUnauthorized, "unauthorized", "Unauthorized")
	ErrRoleNotFound    = New(KindForbidden, "role_not_found", "Role not found")
	ErrForbidden       = New(KindForbidden, "forbidden", "Forbidden: insufficient permission")
	ErrAlreadyLoggedIn = New(KindForbidden, "already_logged_in", "already logged in.")
)

// Detail fields the frontend keys off.
const (
	FieldTokenHasExpired        = "token_has_expired"
	FieldRequestNewVerification = "request_new_verification"
)

// TokenExpired returns the expiry error with the machine-readable detail
// the frontend uses to offer a resend.
func TokenExpired(msg string) *Error {
	return ErrTokenExpired.WithMessage(msg).WithDetails(FieldError{
		Field:   FieldTokenHasExpired,
		Message: FieldTokenHasExpired,
	})
}

// EmailNotVerified returns the login error carrying the resend hint.
func EmailNotVerified() *Error {
	return ErrEmailNotVerified.WithDetails(FieldError{
		Field:   FieldRequestNewVerification,
		Message: FieldRequestNewVerification,
	})
}

// Status returns the HTTP status for err, defaulting to 500.
func Status(err error) int {
	if ae, ok := As(err); ok && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}
