package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

const (
	MinDisplayNameLength = 2
	MaxDisplayNameLength = 100
	MaxEmailLength       = 254
)

var (
	emailLocalRegex  = regexp.MustCompile(`^[a-z0-9._+-]+$`)
	emailDomainRegex = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	displayNameRegex = regexp.MustCompile(`^[\p{L}\p{N}\s\-_.,'!?()]+$`)
)

// ValidateLength checks the rune length of value. A zero bound is not checked.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return apperror.Validation(fmt.Sprintf("%s must be at least %d characters", fieldName, min))
	}
	if max > 0 && length > max {
		return apperror.Validation(fmt.Sprintf("%s must be at most %d characters", fieldName, max))
	}
	return nil
}

// NormalizeEmail lowercases and trims an address. Stored emails are always normalized.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return apperror.Validation("email is required")
	}
	if len(email) > MaxEmailLength {
		return apperror.Validation("email is too long")
	}

	localPart, domainPart, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domainPart, "@") {
		return apperror.Validation("email must contain a single @")
	}
	if len(localPart) == 0 || len(localPart) > 64 {
		return apperror.Validation("email local part must be 1 to 64 characters")
	}
	if !emailLocalRegex.MatchString(localPart) {
		return apperror.Validation("email local part contains invalid characters")
	}
	if !emailDomainRegex.MatchString(domainPart) {
		return apperror.Validation("email domain is malformed")
	}
	return nil
}

func ValidateDisplayName(displayName string) error {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return apperror.Validation("display name is required")
	}
	if err := ValidateLength("display name", displayName, MinDisplayNameLength, MaxDisplayNameLength); err != nil {
		return err
	}
	if !displayNameRegex.MatchString(displayName) {
		return apperror.Validation("display name contains invalid characters")
	}
	return nil
}
