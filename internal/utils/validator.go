package utils

import (
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail reports whether the address looks deliverable enough to
// register or invite
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidatePassword enforces the signup password policy: at least 8 characters
// with an upper-case letter, a lower-case letter and a digit
func ValidatePassword(password string) bool {
	if len(password) < 8 {
		return false
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}

	return upper && lower && digit
}

// SanitizeEmail lowercases and trims an address; all storage and lookups go
// through this so casing never splits an identity
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
