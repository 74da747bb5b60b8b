package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIs_MatchesByCode(t *testing.T) {
	err := TokenExpired("Token has expired (JWT Expired)")

	require.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, "Token has expired (JWT Expired)", err.Message)
	require.Len(t, err.Details, 1)
	assert.Equal(t, FieldTokenHasExpired, err.Details[0].Field)
}

func TestIs_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("login: %w", ErrInvalidCredentials)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, http.StatusUnauthorized, Status(err))
}

func TestDerivedCopiesDoNotMutateSentinel(t *testing.T) {
	_ = ErrValidation.WithMessage("other").WithDetails(FieldError{Field: "x", Message: "y"})

	assert.Equal(t, "Validation failed.", ErrValidation.Message)
	assert.Empty(t, ErrValidation.Details)
}

func TestStatus_Defaults(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, Status(errors.New("boom")))
	assert.Equal(t, http.StatusForbidden, Status(ErrRoleNotFound))
	assert.Equal(t, http.StatusNotFound, Status(ErrUserNotFound))
	assert.Equal(t, http.StatusBadRequest, Status(ErrConflict))
}

func TestUnexpected_KeepsCauseOutOfMessage(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Unexpected(cause)

	assert.Equal(t, "Internal server error.", err.Message)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "refused")
}
