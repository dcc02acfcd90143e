package service

import (
	"regexp"
	"unicode/utf8"
)

// ValidationError is returned for rejected user input. Its message is safe to show to clients.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func invalid(msg string) error { return &ValidationError{msg: msg} }

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return invalid("email is required")
	}
	if !emailPattern.MatchString(email) {
		return invalid("invalid email format")
	}
	return nil
}

// validatePassword enforces length and character classes. bcrypt ignores input past 72 bytes, so
// longer passwords are rejected rather than silently truncated.
func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < 12 {
		return invalid("password must be at least 12 characters")
	}
	if len(password) > 72 {
		return invalid("password must be at most 72 bytes")
	}
	var hasUpper, hasLower, hasNumber, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasNumber = true
		default:
			hasSymbol = true
		}
	}
	if !hasUpper {
		return invalid("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return invalid("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return invalid("password must contain at least one number")
	}
	if !hasSymbol {
		return invalid("password must contain at least one symbol")
	}
	return nil
}

// validatePIN accepts 4 to 8 ASCII digits.
func validatePIN(pin string) error {
	if len(pin) < 4 || len(pin) > 8 {
		return invalid("PIN must be 4 to 8 digits")
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return invalid("PIN must be 4 to 8 digits")
		}
	}
	return nil
}
