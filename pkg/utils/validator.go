package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	accountIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._\-]{1,63}$`)
	controlChars     = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// ValidateAccountID checks that an account identifier is safe to use in URLs and logs
func ValidateAccountID(id string) error {
	if !accountIDPattern.MatchString(id) {
		return fmt.Errorf("invalid account id: %q", id)
	}
	return nil
}

// SanitizeString removes control characters and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}
