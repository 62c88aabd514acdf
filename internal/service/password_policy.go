package service

import (
	"strings"
	"unicode"

	appErrors "github.com/kalamna/auth-api/pkg/errors"
)

// passwordSpecials mirrors the character class accepted by the registration
// policy. Anything outside letters/digits but inside this set counts.
const passwordSpecials = `!@#$%^&*(),.?":{}|<>_-+=/\`

// ValidatePasswordStrength enforces the owner password policy: at least 8
// characters with an upper-case letter, a lower-case letter, a digit and a
// special character. The first violated rule is reported.
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return appErrors.Clone(appErrors.ErrValidation, "password must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		}
	}

	switch {
	case !hasUpper:
		return appErrors.Clone(appErrors.ErrValidation, "password must contain at least one uppercase letter")
	case !hasLower:
		return appErrors.Clone(appErrors.ErrValidation, "password must contain at least one lowercase letter")
	case !hasDigit:
		return appErrors.Clone(appErrors.ErrValidation, "password must contain at least one digit")
	case !hasSpecial:
		return appErrors.Clone(appErrors.ErrValidation, "password must contain at least one special character")
	}

	return nil
}
