package crypto

import (
	"errors"
	"fmt"
	"strings"
)

const (
	uppercaseChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowercaseChars = "abcdefghijklmnopqrstuvwxyz"
	numberChars    = "0123456789"

	MinPasswordLength = 8
)

var (
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	ErrPasswordNoUpper  = errors.New("password must contain at least one uppercase letter")
	ErrPasswordNoLower  = errors.New("password must contain at least one lowercase letter")
	ErrPasswordNoDigit  = errors.New("password must contain at least one digit")
)

// CheckPasswordStrength enforces the registration password policy. It returns the first
// rule the password breaks, or nil.
func CheckPasswordStrength(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	if !strings.ContainsAny(password, uppercaseChars) {
		return ErrPasswordNoUpper
	}
	if !strings.ContainsAny(password, lowercaseChars) {
		return ErrPasswordNoLower
	}
	if !strings.ContainsAny(password, numberChars) {
		return ErrPasswordNoDigit
	}
	return nil
}
