package api

import (
	"strings"
	"unicode"
)

// NormalizeCPF strips every non-digit and requires exactly 11 digits. The
// returned flag is false for malformed values; callers must not echo the raw
// input into errors or logs.
func NormalizeCPF(cpf string) (string, bool) {
	var b strings.Builder
	for _, r := range cpf {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	normalized := b.String()
	if len(normalized) != 11 {
		return "", false
	}
	return normalized, true
}

// NormalizeEmail lowercases and trims. Empty after trimming is invalid.
func NormalizeEmail(email string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", false
	}
	return normalized, true
}
