package auth

import (
	"fmt"
	"unicode"
)

// minPasswordLength is the registration minimum.
const minPasswordLength = 8

// ValidatePassword checks if a password meets complexity requirements:
// at least 8 characters with at least 1 letter and 1 digit.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasLetter {
		return fmt.Errorf("password must contain at least 1 letter")
	}
	if !hasDigit {
		return fmt.Errorf("password must contain at least 1 digit")
	}
	return nil
}
