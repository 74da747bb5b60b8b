package service

import (
	"errors"
	"regexp"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/iliyamo/storefront-api/internal/apperr"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// RegisterInput is the body of POST /auth/register.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate runs the registration rules.
func (r RegisterInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username,
			validation.Required.Error("Username is required."),
			validation.Length(3, 30).Error("Username must be between 3 and 30 characters."),
			validation.Match(usernamePattern).Error("Username may only contain letters, numbers and underscores."),
		),
		validation.Field(&r.Email,
			validation.Required.Error("Email is required."),
			is.Email.Error("Email is not valid."),
		),
		validation.Field(&r.Password,
			validation.Required.Error("Password is required."),
			validation.Length(8, 72).Error("Password must be between 8 and 72 characters."),
		),
	)
}

// LoginInput is the body of POST /auth/login.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email,
			validation.Required.Error("Email is required."),
			is.Email.Error("Email is not valid."),
		),
		validation.Field(&r.Password,
			validation.Required.Error("Password is required."),
		),
	)
}

// ValidationFailed converts ozzo field errors into the 400 envelope.
// Details are sorted by field so responses are stable.
func ValidationFailed(err error) error {
	var ve validation.Errors
	if !errors.As(err, &ve) {
		return apperr.Unexpected(err)
	}
	details := make([]apperr.FieldError, 0, len(ve))
	for field, fe := range ve {
		details = append(details, apperr.FieldError{Field: field, Message: fe.Error()})
	}
	sort.Slice(details, func(i, j int) bool { return details[i].Field < details[j].Field })
	return apperr.Validation("Validation failed.", details...)
}
