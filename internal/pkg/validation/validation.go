package validation

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Names: letters, spaces, hyphens, apostrophes and dots.
var fullnameRe = regexp.MustCompile(`^[\p{L}\s\-'.]+$`)

var phoneRe = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

func IsValidFullname(fullname string) bool {
	return strings.TrimSpace(fullname) != "" && fullnameRe.MatchString(fullname)
}

// NormalizePhone strips spaces, dashes, dots and parentheses.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}

// IsValidPhone accepts 7 to 15 digits with an optional leading +, after NormalizePhone.
func IsValidPhone(phone string) bool {
	return phoneRe.MatchString(NormalizePhone(phone))
}
