package util

import (
	"strings"
	"unicode"
)

// IsBlank reports whether s has no visible characters.
func IsBlank(s string) bool {
	return strings.TrimFunc(s, unicode.IsSpace) == ""
}

// ContainsAnyFold returns the first phrase contained in s, ignoring case.
// Blank phrases never match.
func ContainsAnyFold(s string, phrases []string) (string, bool) {
	lower := strings.ToLower(s)
	for _, p := range phrases {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(p)) {
			return p, true
		}
	}
	return "", false
}
