package validation

import (
	"unicode"

	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

const (
	MinPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordLength = 72
)

// ValidatePassword requires at least one upper case letter, one lower case letter and one digit.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return apperror.Validation("password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		return apperror.Validation("password must be at most 72 bytes")
	}

	var hasUpper, hasLower, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	if !hasUpper {
		return apperror.Validation("password must contain an upper case letter")
	}
	if !hasLower {
		return apperror.Validation("password must contain a lower case letter")
	}
	if !hasNumber {
		return apperror.Validation("password must contain a digit")
	}
	return nil
}
