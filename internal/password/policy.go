package password

import (
	"errors"
	"strings"
	"unicode"
)

// Policy mirrors the dashboard's password rules. Validation is purely local
// and runs before any network call.

const specialChars = "!@#$%^&*"

var (
	ErrTooShort  = errors.New("password must be at least 8 characters long")
	ErrNoUpper   = errors.New("password must contain at least one uppercase letter")
	ErrNoLower   = errors.New("password must contain at least one lowercase letter")
	ErrNoDigit   = errors.New("password must contain at least one number")
	ErrNoSpecial = errors.New("password must contain at least one special character (!@#$%^&*)")
	ErrMismatch  = errors.New("new passwords do not match")
)

// Validate checks the password against every rule and returns the first
// violation, in the same order the dashboard reports them.
func Validate(password string) error {
	if len(password) < 8 {
		return ErrTooShort
	}
	if !strings.ContainsFunc(password, unicode.IsUpper) {
		return ErrNoUpper
	}
	if !strings.ContainsFunc(password, unicode.IsLower) {
		return ErrNoLower
	}
	if !strings.ContainsFunc(password, unicode.IsDigit) {
		return ErrNoDigit
	}
	if !strings.ContainsAny(password, specialChars) {
		return ErrNoSpecial
	}
	return nil
}

// ValidateConfirmed additionally requires the confirmation to match before
// the rules are applied.
func ValidateConfirmed(password, confirm string) error {
	if password != confirm {
		return ErrMismatch
	}
	return Validate(password)
}
