// utils/validation.go
package utils

import (
	"regexp"
	"strings"
)

var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// NormalizePhone strips formatting characters from a phone number. It does
// not add a country code; numbers are expected in international form.
func NormalizePhone(phone string) string {
	cleaned := strings.ReplaceAll(phone, " ", "")
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	cleaned = strings.ReplaceAll(cleaned, "(", "")
	cleaned = strings.ReplaceAll(cleaned, ")", "")
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	return cleaned
}

// ValidatePhone checks if a phone number is in E.164 format after
// normalization.
func ValidatePhone(phone string) bool {
	return e164Pattern.MatchString(NormalizePhone(phone))
}
