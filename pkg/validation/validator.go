// Package validation holds the shared field validators for user input:
// email addresses, phone numbers and identity documents. Handlers call
// these before anything reaches a store.
package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
)

var (
	// phonePattern accepts digits with optional separators and a leading
	// country code, between 7 and 15 digits total.
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 .\-()]{5,18}[0-9]$`)

	// usernamePattern keeps usernames shell and URL safe.
	usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{2,31}$`)
)

// Email validates an address with the mail package. Empty values are
// allowed; callers enforce presence separately.
func Email(value string) error {
	if value == "" {
		return nil
	}
	if _, err := mail.ParseAddress(value); err != nil {
		return fmt.Errorf("invalid email address: %s", value)
	}
	return nil
}

// Phone validates an optional phone number.
func Phone(value string) error {
	if value == "" {
		return nil
	}
	if !phonePattern.MatchString(value) {
		return fmt.Errorf("invalid phone number: %s", value)
	}
	digits := 0
	for _, r := range value {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if digits < 7 || digits > 15 {
		return fmt.Errorf("phone number must have 7 to 15 digits")
	}
	return nil
}

// DocumentID validates a national identity document: digits only, 6 to
// 12 characters.
func DocumentID(value string) error {
	if len(value) < 6 || len(value) > 12 {
		return fmt.Errorf("document id must be 6 to 12 digits")
	}
	for _, r := range value {
		if !unicode.IsDigit(r) {
			return fmt.Errorf("document id must contain only digits")
		}
	}
	return nil
}

// Username validates a login name: lowercase alphanumerics plus dots,
// dashes and underscores, 3 to 32 characters, starting alphanumeric.
func Username(value string) error {
	if !usernamePattern.MatchString(value) {
		return fmt.Errorf("username must be 3-32 lowercase letters, digits, '.', '_' or '-'")
	}
	return nil
}

// NormalizeName trims and collapses internal whitespace in a person or
// place name.
func NormalizeName(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
